package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/choreledger/internal/model"
)

type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

// WithTx returns a UserStore bound to tx.
func (s *UserStore) WithTx(tx *sql.Tx) *UserStore {
	return &UserStore{db: tx}
}

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	var last sql.NullTime
	var notif sql.NullString

	err := sc.Scan(&u.ID, &u.Name, &u.Color, &u.Avatar, &u.Points, &u.Level, &u.Streak,
		&last, &notif, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.LastCompletedAt = timePtr(last)
	if notif.Valid {
		u.NotifTime = &notif.String
	}
	return &u, nil
}

const userCols = `id, name, color, avatar, points, level, streak, last_completed_at, notif_time, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, name, color, avatar string) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, color, avatar) VALUES (?, ?, ?)`,
		name, color, avatar,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// List returns users in onboarding order.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	return s.query(ctx, `SELECT `+userCols+` FROM users ORDER BY id ASC`)
}

// ListByPoints returns users ordered for the leaderboard.
func (s *UserStore) ListByPoints(ctx context.Context) ([]model.User, error) {
	return s.query(ctx, `SELECT `+userCols+` FROM users ORDER BY points DESC, streak DESC, name ASC`)
}

// ListWithNotifTime returns users that set a reminder time.
func (s *UserStore) ListWithNotifTime(ctx context.Context) ([]model.User, error) {
	return s.query(ctx, `SELECT `+userCols+` FROM users WHERE notif_time IS NOT NULL AND notif_time != '' ORDER BY id ASC`)
}

func (s *UserStore) query(ctx context.Context, q string, args ...any) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile changes the user-editable fields. Gamification fields are
// untouched.
func (s *UserStore) UpdateProfile(ctx context.Context, id int64, name, color, avatar string, notifTime *string) (*model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, color = ?, avatar = ?, notif_time = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, color, avatar, nullString(notifTime), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return s.GetByID(ctx, id)
}

// UpdateProgress writes points, level, streak and last completion.
func (s *UserStore) UpdateProgress(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET points = ?, level = ?, streak = ?, last_completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		u.Points, u.Level, u.Streak, nullTime(u.LastCompletedAt), u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user progress: %w", err)
	}
	return nil
}

// AllExist reports whether every id refers to an existing user.
func (s *UserStore) AllExist(ctx context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n); err != nil {
			return false, fmt.Errorf("check user exists: %w", err)
		}
		if n == 0 {
			return false, nil
		}
	}
	return true, nil
}
