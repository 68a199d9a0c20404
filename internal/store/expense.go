package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/choreledger/internal/model"
)

type ExpenseStore struct {
	db DBTX
}

func NewExpenseStore(db DBTX) *ExpenseStore {
	return &ExpenseStore{db: db}
}

// WithTx returns an ExpenseStore bound to tx.
func (s *ExpenseStore) WithTx(tx *sql.Tx) *ExpenseStore {
	return &ExpenseStore{db: tx}
}

func scanExpense(sc scanner) (*model.Expense, error) {
	var e model.Expense
	err := sc.Scan(&e.ID, &e.Description, &e.Amount, &e.PayerID, &e.Category, &e.Date, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Date = e.Date.UTC()
	e.Splits = []model.Split{}
	return &e, nil
}

const expenseCols = `id, description, amount, payer_id, category, date, created_at`

// Create inserts e and its splits and sets e.ID. Callers wanting the
// expense and splits to land together run it inside a transaction.
func (s *ExpenseStore) Create(ctx context.Context, e *model.Expense) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (description, amount, payer_id, category, date) VALUES (?, ?, ?, ?, ?)`,
		e.Description, e.Amount.String(), e.PayerID, e.Category, e.Date.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id

	for _, sp := range e.Splits {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, debtor_id, amount) VALUES (?, ?, ?)`,
			id, sp.DebtorID, sp.Amount.String(),
		); err != nil {
			return fmt.Errorf("insert expense split: %w", err)
		}
	}
	return nil
}

func (s *ExpenseStore) GetByID(ctx context.Context, id int64) (*model.Expense, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	out := []model.Expense{*e}
	if err := s.attachSplits(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListAll returns every expense with its splits, oldest first.
func (s *ExpenseStore) ListAll(ctx context.Context) ([]model.Expense, error) {
	return s.query(ctx, `SELECT `+expenseCols+` FROM expenses ORDER BY date ASC, id ASC`)
}

// Recent returns the newest limit expenses by date.
func (s *ExpenseStore) Recent(ctx context.Context, limit int) ([]model.Expense, error) {
	return s.query(ctx,
		`SELECT `+expenseCols+` FROM expenses ORDER BY date DESC, id DESC LIMIT ?`, limit)
}

// ListBetween returns expenses dated in [from, to), newest first.
func (s *ExpenseStore) ListBetween(ctx context.Context, from, to time.Time) ([]model.Expense, error) {
	return s.query(ctx,
		`SELECT `+expenseCols+` FROM expenses WHERE date >= ? AND date < ? ORDER BY date DESC, id DESC`,
		from.UTC(), to.UTC())
}

func (s *ExpenseStore) query(ctx context.Context, q string, args ...any) ([]model.Expense, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachSplits(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// splitBatchSize keeps each split lookup well under SQLite's bound
// variable limit.
const splitBatchSize = 500

func (s *ExpenseStore) attachSplits(ctx context.Context, expenses []model.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(expenses))
	for i, e := range expenses {
		idx[e.ID] = i
	}
	for start := 0; start < len(expenses); start += splitBatchSize {
		end := min(start+splitBatchSize, len(expenses))
		if err := s.attachSplitBatch(ctx, expenses, idx, expenses[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExpenseStore) attachSplitBatch(ctx context.Context, expenses []model.Expense, idx map[int64]int, batch []model.Expense) error {
	ph := make([]string, len(batch))
	args := make([]any, len(batch))
	for i, e := range batch {
		ph[i] = "?"
		args[i] = e.ID
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT expense_id, debtor_id, amount FROM expense_splits WHERE expense_id IN (`+strings.Join(ph, ", ")+`) ORDER BY id ASC`,
		args...)
	if err != nil {
		return fmt.Errorf("list expense splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID int64
		var sp model.Split
		var amount string
		if err := rows.Scan(&expenseID, &sp.DebtorID, &amount); err != nil {
			return fmt.Errorf("scan expense split: %w", err)
		}
		sp.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("parse split amount %q: %w", amount, err)
		}
		i := idx[expenseID]
		expenses[i].Splits = append(expenses[i].Splits, sp)
	}
	return rows.Err()
}
