package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/choreledger/internal/model"
)

type TransferStore struct {
	db DBTX
}

func NewTransferStore(db DBTX) *TransferStore {
	return &TransferStore{db: db}
}

// WithTx returns a TransferStore bound to tx.
func (s *TransferStore) WithTx(tx *sql.Tx) *TransferStore {
	return &TransferStore{db: tx}
}

func scanTransfer(sc scanner) (*model.TransferRequest, error) {
	var t model.TransferRequest
	err := sc.Scan(&t.ID, &t.ChoreInstanceID, &t.FromUserID, &t.ToUserID, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const transferCols = `id, chore_instance_id, from_user_id, to_user_id, status, created_at, updated_at`

func (s *TransferStore) Create(ctx context.Context, instanceID, fromID, toID int64) (*model.TransferRequest, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO transfer_requests (chore_instance_id, from_user_id, to_user_id, status) VALUES (?, ?, ?, ?)`,
		instanceID, fromID, toID, model.TransferPending,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transfer request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TransferStore) GetByID(ctx context.Context, id int64) (*model.TransferRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transferCols+` FROM transfer_requests WHERE id = ?`, id)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer request: %w", err)
	}
	return t, nil
}

// Resolve moves a pending request to status. It reports false when the
// request was no longer pending.
func (s *TransferStore) Resolve(ctx context.Context, id int64, status model.TransferStatus) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE transfer_requests SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		status, id, model.TransferPending,
	)
	if err != nil {
		return false, fmt.Errorf("resolve transfer request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListIncoming returns pending requests addressed to userID, newest first.
func (s *TransferStore) ListIncoming(ctx context.Context, userID int64) ([]model.IncomingTransfer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.chore_instance_id, t.from_user_id, t.to_user_id, t.status, t.created_at, t.updated_at,
		        u.name, c.title, i.due_date
		 FROM transfer_requests t
		 JOIN users u ON u.id = t.from_user_id
		 JOIN chore_instances i ON i.id = t.chore_instance_id
		 JOIN chores c ON c.id = i.chore_id
		 WHERE t.to_user_id = ? AND t.status = ?
		 ORDER BY t.created_at DESC, t.id DESC`,
		userID, model.TransferPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list incoming transfers: %w", err)
	}
	defer rows.Close()

	var out []model.IncomingTransfer
	for rows.Next() {
		var it model.IncomingTransfer
		if err := rows.Scan(&it.ID, &it.ChoreInstanceID, &it.FromUserID, &it.ToUserID, &it.Status,
			&it.CreatedAt, &it.UpdatedAt, &it.FromUserName, &it.ChoreTitle, &it.DueDate); err != nil {
			return nil, fmt.Errorf("scan incoming transfer: %w", err)
		}
		it.DueDate = it.DueDate.UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}
