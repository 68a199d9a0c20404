package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/choreledger/internal/model"
)

// ErrDuplicateCategory is returned when a budget rename collides with an
// existing category.
var ErrDuplicateCategory = errors.New("budget category already exists")

type BudgetStore struct {
	db DBTX
}

func NewBudgetStore(db DBTX) *BudgetStore {
	return &BudgetStore{db: db}
}

func scanBudget(sc scanner) (*model.Budget, error) {
	var b model.Budget
	err := sc.Scan(&b.ID, &b.Category, &b.Amount, &b.Icon, &b.Color, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const budgetCols = `id, category, amount, icon, color, created_at, updated_at`

// Upsert creates the budget for category or replaces its amount, icon and
// color.
func (s *BudgetStore) Upsert(ctx context.Context, category string, amount decimal.Decimal, icon model.Icon, color string) (*model.Budget, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (category, amount, icon, color) VALUES (?, ?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET amount = excluded.amount, icon = excluded.icon, color = excluded.color, updated_at = CURRENT_TIMESTAMP`,
		category, amount.String(), icon, color,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert budget: %w", err)
	}
	return s.GetByCategory(ctx, category)
}

// Update rewrites the budget identified by id, including its category.
func (s *BudgetStore) Update(ctx context.Context, id int64, category string, amount decimal.Decimal, icon model.Icon, color string) (*model.Budget, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount = ?, icon = ?, color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		category, amount.String(), icon, color, id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateCategory
		}
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *BudgetStore) GetByID(ctx context.Context, id int64) (*model.Budget, error) {
	return s.get(ctx, `SELECT `+budgetCols+` FROM budgets WHERE id = ?`, id)
}

func (s *BudgetStore) GetByCategory(ctx context.Context, category string) (*model.Budget, error) {
	return s.get(ctx, `SELECT `+budgetCols+` FROM budgets WHERE category = ?`, category)
}

func (s *BudgetStore) get(ctx context.Context, q string, arg any) (*model.Budget, error) {
	b, err := scanBudget(s.db.QueryRowContext(ctx, q, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// List returns budgets ordered by category.
func (s *BudgetStore) List(ctx context.Context) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+budgetCols+` FROM budgets ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
