package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/choreledger/internal/model"
)

type ChoreStore struct {
	db DBTX
}

func NewChoreStore(db DBTX) *ChoreStore {
	return &ChoreStore{db: db}
}

// WithTx returns a ChoreStore bound to tx.
func (s *ChoreStore) WithTx(tx *sql.Tx) *ChoreStore {
	return &ChoreStore{db: tx}
}

// --- Chore methods ---

func scanChore(sc scanner) (*model.Chore, error) {
	var c model.Chore
	var interval sql.NullInt64

	err := sc.Scan(&c.ID, &c.Title, &c.Description, &c.Icon, &c.Frequency, &interval,
		&c.Difficulty, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if interval.Valid {
		v := int(interval.Int64)
		c.CustomInterval = &v
	}
	c.AssigneeIDs = []int64{}
	return &c, nil
}

const choreCols = `id, title, description, icon, frequency, custom_interval, difficulty, created_at, updated_at`

func customIntervalArg(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// Create inserts c together with its rotation list and sets c.ID.
func (s *ChoreStore) Create(ctx context.Context, c *model.Chore) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (title, description, icon, frequency, custom_interval, difficulty) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Title, c.Description, c.Icon, c.Frequency, customIntervalArg(c.CustomInterval), c.Difficulty,
	)
	if err != nil {
		return fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return s.replaceAssignees(ctx, id, c.AssigneeIDs)
}

func (s *ChoreStore) GetByID(ctx context.Context, id int64) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}

	ids, err := s.assignees(ctx, id)
	if err != nil {
		return nil, err
	}
	c.AssigneeIDs = ids
	return c, nil
}

// List returns all chores, newest first, with their rotation lists.
func (s *ChoreStore) List(ctx context.Context) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+choreCols+` FROM chores ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := s.allAssignees(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chores {
		if ids, ok := all[chores[i].ID]; ok {
			chores[i].AssigneeIDs = ids
		}
	}
	return chores, nil
}

func (s *ChoreStore) Update(ctx context.Context, c *model.Chore) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET title = ?, description = ?, icon = ?, frequency = ?, custom_interval = ?, difficulty = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		c.Title, c.Description, c.Icon, c.Frequency, customIntervalArg(c.CustomInterval), c.Difficulty, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update chore: %w", err)
	}
	return s.replaceAssignees(ctx, c.ID, c.AssigneeIDs)
}

// Delete removes the chore; instances, assignees and transfer requests
// cascade.
func (s *ChoreStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) replaceAssignees(ctx context.Context, choreID int64, ids []int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chore_assignees WHERE chore_id = ?`, choreID); err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}
	for i, uid := range ids {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO chore_assignees (chore_id, position, user_id) VALUES (?, ?, ?)`,
			choreID, i, uid,
		); err != nil {
			return fmt.Errorf("insert assignee: %w", err)
		}
	}
	return nil
}

func (s *ChoreStore) assignees(ctx context.Context, choreID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM chore_assignees WHERE chore_id = ? ORDER BY position ASC`, choreID)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ChoreStore) allAssignees(ctx context.Context) (map[int64][]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chore_id, user_id FROM chore_assignees ORDER BY chore_id ASC, position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var choreID, userID int64
		if err := rows.Scan(&choreID, &userID); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		out[choreID] = append(out[choreID], userID)
	}
	return out, rows.Err()
}

// --- Instance methods ---

func scanInstance(sc scanner) (*model.ChoreInstance, error) {
	var in model.ChoreInstance
	var assigned sql.NullInt64
	var completed sql.NullTime

	err := sc.Scan(&in.ID, &in.ChoreID, &assigned, &in.DueDate, &in.Status, &completed, &in.CreatedAt)
	if err != nil {
		return nil, err
	}
	in.AssignedUserID = int64Ptr(assigned)
	in.CompletedAt = timePtr(completed)
	in.DueDate = in.DueDate.UTC()
	return &in, nil
}

const instanceCols = `id, chore_id, assigned_user_id, due_date, status, completed_at, created_at`

// CreateInstance inserts in and sets in.ID.
func (s *ChoreStore) CreateInstance(ctx context.Context, in *model.ChoreInstance) error {
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chore_instances (chore_id, assigned_user_id, due_date, status) VALUES (?, ?, ?, ?)`,
		in.ChoreID, nullInt64(in.AssignedUserID), in.DueDate.UTC(), in.Status,
	)
	if err != nil {
		return fmt.Errorf("insert chore instance: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	in.ID = id
	return nil
}

func (s *ChoreStore) GetInstance(ctx context.Context, id int64) (*model.ChoreInstance, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+instanceCols+` FROM chore_instances WHERE id = ?`, id)
	in, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore instance: %w", err)
	}
	return in, nil
}

// SetInstanceStatus writes status and completedAt (nil clears it).
func (s *ChoreStore) SetInstanceStatus(ctx context.Context, id int64, status model.InstanceStatus, completedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chore_instances SET status = ?, completed_at = ? WHERE id = ?`,
		status, nullTime(completedAt), id,
	)
	if err != nil {
		return fmt.Errorf("set instance status: %w", err)
	}
	return nil
}

// MarkCompleted marks the instance completed unless it already is and
// reports whether a row changed.
func (s *ChoreStore) MarkCompleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chore_instances SET status = ?, completed_at = ? WHERE id = ? AND status != ?`,
		model.StatusCompleted, at.UTC(), id, model.StatusCompleted,
	)
	if err != nil {
		return false, fmt.Errorf("complete instance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *ChoreStore) SetInstanceAssignee(ctx context.Context, id int64, userID *int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chore_instances SET assigned_user_id = ? WHERE id = ?`,
		nullInt64(userID), id,
	)
	if err != nil {
		return fmt.Errorf("set instance assignee: %w", err)
	}
	return nil
}

func (s *ChoreStore) SetInstanceDueDate(ctx context.Context, id int64, due time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chore_instances SET due_date = ? WHERE id = ?`,
		due.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set instance due date: %w", err)
	}
	return nil
}

// FirstPendingInstance returns the earliest pending instance of a chore.
func (s *ChoreStore) FirstPendingInstance(ctx context.Context, choreID int64) (*model.ChoreInstance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instanceCols+` FROM chore_instances WHERE chore_id = ? AND status = ? ORDER BY due_date ASC, id ASC LIMIT 1`,
		choreID, model.StatusPending,
	)
	in, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first pending instance: %w", err)
	}
	return in, nil
}

// CountDueForUser counts pending instances assigned to userID due at or
// before t.
func (s *ChoreStore) CountDueForUser(ctx context.Context, userID int64, t time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chore_instances WHERE assigned_user_id = ? AND status = ? AND due_date <= ?`,
		userID, model.StatusPending, t.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count due instances: %w", err)
	}
	return n, nil
}

// --- Detail queries (dashboard, calendar) ---

const detailSelect = `SELECT i.id, i.chore_id, i.assigned_user_id, i.due_date, i.status, i.completed_at, i.created_at,
	c.title, c.icon, c.difficulty,
	COALESCE(u.name, ''), COALESCE(u.color, ''), COALESCE(u.avatar, '')
	FROM chore_instances i
	JOIN chores c ON c.id = i.chore_id
	LEFT JOIN users u ON u.id = i.assigned_user_id`

func scanDetail(sc scanner) (*model.InstanceDetail, error) {
	var d model.InstanceDetail
	var assigned sql.NullInt64
	var completed sql.NullTime

	err := sc.Scan(&d.ID, &d.ChoreID, &assigned, &d.DueDate, &d.Status, &completed, &d.CreatedAt,
		&d.ChoreTitle, &d.ChoreIcon, &d.ChoreDifficulty,
		&d.AssigneeName, &d.AssigneeColor, &d.AssigneeAvatar)
	if err != nil {
		return nil, err
	}
	d.AssignedUserID = int64Ptr(assigned)
	d.CompletedAt = timePtr(completed)
	d.DueDate = d.DueDate.UTC()
	return &d, nil
}

func (s *ChoreStore) queryDetails(ctx context.Context, q string, args ...any) ([]model.InstanceDetail, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query instance details: %w", err)
	}
	defer rows.Close()

	var out []model.InstanceDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instance detail: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// InstanceFilter narrows ListDetails. Zero values are ignored.
type InstanceFilter struct {
	AssignedUserID *int64
	Statuses       []model.InstanceStatus
	DueFrom        *time.Time // inclusive
	DueBefore      *time.Time // exclusive
	Limit          int
}

// ListDetails returns instances matching f ordered by due date.
func (s *ChoreStore) ListDetails(ctx context.Context, f InstanceFilter) ([]model.InstanceDetail, error) {
	var where []string
	var args []any

	if f.AssignedUserID != nil {
		where = append(where, "i.assigned_user_id = ?")
		args = append(args, *f.AssignedUserID)
	}
	if len(f.Statuses) > 0 {
		ph := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			ph[i] = "?"
			args = append(args, st)
		}
		where = append(where, "i.status IN ("+strings.Join(ph, ", ")+")")
	}
	if f.DueFrom != nil {
		where = append(where, "i.due_date >= ?")
		args = append(args, f.DueFrom.UTC())
	}
	if f.DueBefore != nil {
		where = append(where, "i.due_date < ?")
		args = append(args, f.DueBefore.UTC())
	}

	q := detailSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY i.due_date ASC, i.id ASC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	return s.queryDetails(ctx, q, args...)
}
