// Package finance records shared expenses and budgets and derives balances,
// settlements and spending insights from them.
package finance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/choreledger/internal/database"
	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/settlement"
	"github.com/dukerupert/choreledger/internal/store"
)

const (
	// BalanceHistoryLimit is how many recent expenses accompany balances.
	BalanceHistoryLimit = 5
	// RecentLimit is the default size of the recent transactions list.
	RecentLimit = 20
)

type Service struct {
	db       *sql.DB
	users    *store.UserStore
	expenses *store.ExpenseStore
	budgets  *store.BudgetStore
	logger   *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		users:    store.NewUserStore(db),
		expenses: store.NewExpenseStore(db),
		budgets:  store.NewBudgetStore(db),
		logger:   logger.With("component", "finance"),
	}
}

// ExpenseInput is a new expense as submitted. A nil Date means now and an
// empty Category is inferred from the description.
type ExpenseInput struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PayerID     int64           `json:"payer_id"`
	Category    string          `json:"category"`
	Date        *time.Time      `json:"date"`
	Splits      []model.Split   `json:"splits"`
}

// CreateExpense appends an expense and its splits to the ledger. A split
// total that differs from the amount is accepted and logged; balances are
// computed from what was recorded.
func (s *Service) CreateExpense(ctx context.Context, in ExpenseInput, now time.Time) (*model.Expense, error) {
	e := model.Expense{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		PayerID:     in.PayerID,
		Category:    strings.TrimSpace(in.Category),
		Date:        now.UTC(),
		Splits:      append([]model.Split{}, in.Splits...),
	}
	if in.Date != nil {
		e.Date = in.Date.UTC()
	}
	if e.Category == "" {
		e.Category = Categorize(e.Description)
	}

	if e.Description == "" {
		return nil, model.Invalid("description", "is required")
	}
	if e.Amount.IsNegative() {
		return nil, model.Invalid("amount", "must not be negative")
	}
	ids := []int64{e.PayerID}
	for _, sp := range e.Splits {
		if sp.Amount.IsNegative() {
			return nil, model.Invalid("splits", "amounts must not be negative")
		}
		ids = append(ids, sp.DebtorID)
	}
	ok, err := s.users.AllExist(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	if !ok {
		return nil, model.Invalid("payer_id", "payer and debtors must be existing users")
	}

	if total := e.SplitTotal(); !total.Equal(e.Amount) {
		s.logger.Warn("split total differs from expense amount",
			"amount", e.Amount.String(), "split_total", total.String(), "description", e.Description)
	}

	err = database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.expenses.WithTx(tx).Create(ctx, &e)
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info("expense recorded", "expense_id", e.ID, "amount", e.Amount.String(), "payer_id", e.PayerID, "category", e.Category)
	return &e, nil
}

// Balances is the settlement of all expenses plus the most recent ones.
type Balances struct {
	settlement.Result
	Recent []model.Expense `json:"recent"`
}

// Balances settles the full expense history between all users.
func (s *Service) Balances(ctx context.Context) (*Balances, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	all, err := s.expenses.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	recent, err := s.expenses.Recent(ctx, BalanceHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	if recent == nil {
		recent = []model.Expense{}
	}

	return &Balances{Result: settlement.Compute(all, ids), Recent: recent}, nil
}

// Transaction is an expense with its payer's name.
type Transaction struct {
	model.Expense
	PayerName string `json:"payer_name"`
}

// RecentTransactions returns the newest limit expenses by date.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	expenses, err := s.expenses.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return s.withPayers(ctx, expenses)
}

func (s *Service) withPayers(ctx context.Context, expenses []model.Expense) ([]Transaction, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payers: %w", err)
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	out := make([]Transaction, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, Transaction{Expense: e, PayerName: names[e.PayerID]})
	}
	return out, nil
}

// BudgetInput is a budget as submitted for create or update.
type BudgetInput struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Icon     string          `json:"icon"`
	Color    string          `json:"color"`
}

func (in BudgetInput) normalize() (BudgetInput, model.Icon, error) {
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		return in, "", model.Invalid("category", "is required")
	}
	if in.Amount.IsNegative() {
		return in, "", model.Invalid("amount", "must not be negative")
	}
	icon, _ := model.ParseIcon(in.Icon)
	return in, icon, nil
}

// SetBudget creates or replaces the monthly budget for a category.
func (s *Service) SetBudget(ctx context.Context, in BudgetInput) (*model.Budget, error) {
	in, icon, err := in.normalize()
	if err != nil {
		return nil, err
	}
	b, err := s.budgets.Upsert(ctx, in.Category, in.Amount, icon, in.Color)
	if err != nil {
		return nil, fmt.Errorf("set budget: %w", err)
	}
	s.logger.Info("budget set", "budget_id", b.ID, "category", b.Category, "amount", b.Amount.String())
	return b, nil
}

// UpdateBudget rewrites the budget with id, including renaming its category.
func (s *Service) UpdateBudget(ctx context.Context, id int64, in BudgetInput) (*model.Budget, error) {
	in, icon, err := in.normalize()
	if err != nil {
		return nil, err
	}
	existing, err := s.budgets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	if existing == nil {
		return nil, model.ErrBudgetNotFound
	}

	b, err := s.budgets.Update(ctx, id, in.Category, in.Amount, icon, in.Color)
	if errors.Is(err, store.ErrDuplicateCategory) {
		return nil, model.Invalid("category", "a budget for this category already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("update budget %d: %w", id, err)
	}
	s.logger.Info("budget updated", "budget_id", id, "category", b.Category)
	return b, nil
}

func (s *Service) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	out, err := s.budgets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if out == nil {
		out = []model.Budget{}
	}
	return out, nil
}
