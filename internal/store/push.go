package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/choreledger/internal/model"
)

type PushStore struct {
	db DBTX
}

func NewPushStore(db DBTX) *PushStore {
	return &PushStore{db: db}
}

const subscriptionCols = `id, user_id, endpoint, p256dh, auth, created_at`

// CreateSubscription registers an endpoint for userID. Re-registering an
// endpoint moves it to userID and refreshes its keys.
func (s *PushStore) CreateSubscription(ctx context.Context, userID int64, endpoint, p256dh, auth string) (*model.PushSubscription, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh = excluded.p256dh, auth = excluded.auth`,
		userID, endpoint, p256dh, auth,
	)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}
	// LastInsertId is unreliable on conflict update; re-query by endpoint
	return s.getByEndpoint(ctx, endpoint)
}

func (s *PushStore) getByEndpoint(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint,
	).Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get push subscription by endpoint: %w", err)
	}
	return &sub, nil
}

func (s *PushStore) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY id ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions by user: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

// DeleteByUser removes every endpoint of userID and returns how many went.
func (s *PushStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete push subscriptions by user: %w", err)
	}
	return result.RowsAffected()
}

// RecordReminder marks userID as reminded for day (YYYY-MM-DD). It reports
// false when a reminder was already recorded for that day.
func (s *PushStore) RecordReminder(ctx context.Context, userID int64, day string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sent_reminders (user_id, reminder_date) VALUES (?, ?)`,
		userID, day,
	)
	if err != nil {
		return false, fmt.Errorf("record reminder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// WasReminded checks if userID already got a reminder on day.
func (s *PushStore) WasReminded(ctx context.Context, userID int64, day string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_reminders WHERE user_id = ? AND reminder_date = ?`,
		userID, day,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check sent reminder: %w", err)
	}
	return count > 0, nil
}

// CleanupReminders deletes reminder records older than day.
func (s *PushStore) CleanupReminders(ctx context.Context, day string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sent_reminders WHERE reminder_date < ?`, day)
	if err != nil {
		return fmt.Errorf("cleanup sent reminders: %w", err)
	}
	return nil
}
