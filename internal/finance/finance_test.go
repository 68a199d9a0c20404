package finance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/choreledger/internal/database"
	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/settlement"
	"github.com/dukerupert/choreledger/internal/store"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc     *Service
	db      *sql.DB
	logs    *bytes.Buffer
	a, b, c int64
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	us := store.NewUserStore(db)
	ctx := context.Background()
	a, _ := us.Create(ctx, "A", "", "")
	b, _ := us.Create(ctx, "B", "", "")
	c, _ := us.Create(ctx, "C", "", "")
	return fixture{svc: NewService(db, logger), db: db, logs: &logs, a: a.ID, b: b.ID, c: c.ID}
}

var june15 = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func (f fixture) expense(t *testing.T, desc, amount string, payer int64, category string, date time.Time, splits ...model.Split) *model.Expense {
	t.Helper()
	e, err := f.svc.CreateExpense(context.Background(), ExpenseInput{
		Description: desc, Amount: dec(amount), PayerID: payer, Category: category, Date: &date, Splits: splits,
	}, date)
	if err != nil {
		t.Fatalf("create expense %s: %v", desc, err)
	}
	return e
}

func split(id int64, amount string) model.Split {
	return model.Split{DebtorID: id, Amount: dec(amount)}
}

func TestBalancesDinnerExample(t *testing.T) {
	f := setup(t)
	f.expense(t, "Dinner", "30", f.c, "", june15, split(f.a, "10"), split(f.b, "10"), split(f.c, "10"))

	got, err := f.svc.Balances(context.Background())
	if err != nil {
		t.Fatalf("balances: %v", err)
	}

	want := []settlement.Settlement{
		{From: f.a, To: f.c, Amount: dec("10")},
		{From: f.b, To: f.c, Amount: dec("10")},
	}
	if diff := cmp.Diff(want, got.Settlements, decimalEqual); diff != "" {
		t.Errorf("settlements mismatch (-want +got):\n%s", diff)
	}
	if !got.BalanceOf(f.c).Equal(dec("20")) {
		t.Errorf("C balance = %s, want 20", got.BalanceOf(f.c))
	}
	if len(got.Recent) != 1 || got.Recent[0].Category != "Food" {
		t.Errorf("recent = %+v", got.Recent)
	}
}

func TestBalancesRecentLimit(t *testing.T) {
	f := setup(t)
	for i := 1; i <= 8; i++ {
		f.expense(t, "Item", "1", f.a, "", june15.AddDate(0, 0, -i))
	}
	got, _ := f.svc.Balances(context.Background())
	if len(got.Recent) != BalanceHistoryLimit {
		t.Errorf("recent = %d, want %d", len(got.Recent), BalanceHistoryLimit)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    ExpenseInput
		field string
	}{
		{"no description", ExpenseInput{Amount: dec("1"), PayerID: f.a}, "description"},
		{"negative amount", ExpenseInput{Description: "x", Amount: dec("-1"), PayerID: f.a}, "amount"},
		{"negative split", ExpenseInput{Description: "x", Amount: dec("1"), PayerID: f.a, Splits: []model.Split{split(f.b, "-1")}}, "splits"},
		{"unknown payer", ExpenseInput{Description: "x", Amount: dec("1"), PayerID: 999}, "payer_id"},
		{"unknown debtor", ExpenseInput{Description: "x", Amount: dec("1"), PayerID: f.a, Splits: []model.Split{split(999, "1")}}, "payer_id"},
	}
	for _, tt := range tests {
		_, err := f.svc.CreateExpense(ctx, tt.in, june15)
		var ve *model.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: err = %v, want ValidationError", tt.name, err)
			continue
		}
		if ve.Field != tt.field {
			t.Errorf("%s: field = %q, want %q", tt.name, ve.Field, tt.field)
		}
	}

	var n int
	f.db.QueryRow(`SELECT COUNT(*) FROM expenses`).Scan(&n)
	if n != 0 {
		t.Errorf("expenses = %d, want none written", n)
	}
}

func TestCreateExpenseSplitMismatchAccepted(t *testing.T) {
	f := setup(t)
	e := f.expense(t, "Taxi", "25", f.a, "Transport", june15, split(f.a, "10"), split(f.b, "10"))

	if e.ID == 0 {
		t.Fatal("expected expense stored")
	}
	if !strings.Contains(f.logs.String(), "split total differs") {
		t.Error("expected a warning about the split mismatch")
	}
}

func TestBudgets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	food, err := f.svc.SetBudget(ctx, BudgetInput{Category: " Food ", Amount: dec("400"), Icon: "shoppingcart"})
	if err != nil {
		t.Fatalf("set budget: %v", err)
	}
	if food.Category != "Food" || food.Icon != "ShoppingCart" {
		t.Errorf("budget = %+v", food)
	}
	if _, err := f.svc.SetBudget(ctx, BudgetInput{Category: "Fun", Amount: dec("50"), Icon: "Rocket"}); err != nil {
		t.Fatalf("set budget: %v", err)
	}

	list, _ := f.svc.ListBudgets(ctx)
	if len(list) != 2 || list[1].Icon != model.IconHelp {
		t.Errorf("budgets = %+v", list)
	}

	renamed, err := f.svc.UpdateBudget(ctx, food.ID, BudgetInput{Category: "Groceries", Amount: dec("420")})
	if err != nil {
		t.Fatalf("update budget: %v", err)
	}
	if renamed.Category != "Groceries" {
		t.Errorf("category = %q", renamed.Category)
	}

	_, err = f.svc.UpdateBudget(ctx, food.ID, BudgetInput{Category: "Fun", Amount: dec("1")})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("duplicate rename: err = %v, want validation", err)
	}
	_, err = f.svc.UpdateBudget(ctx, 999, BudgetInput{Category: "X", Amount: dec("1")})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing budget: err = %v, want not found", err)
	}
	_, err = f.svc.SetBudget(ctx, BudgetInput{Category: "", Amount: dec("1")})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("blank category: err = %v, want validation", err)
	}
}

func TestInsights(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.svc.SetBudget(ctx, BudgetInput{Category: "Food", Amount: dec("300")})
	f.svc.SetBudget(ctx, BudgetInput{Category: "Fun", Amount: dec("100")})

	f.expense(t, "Market", "120", f.a, "Food", june15.AddDate(0, 0, -10))
	f.expense(t, "Cinema", "90", f.b, "Fun", june15.AddDate(0, 0, -3))
	f.expense(t, "Vet", "60", f.c, "Pets", june15.AddDate(0, 0, -1))
	f.expense(t, "Old", "999", f.a, "Food", june15.AddDate(0, -1, 0))

	got, err := f.svc.Insights(ctx, june15)
	if err != nil {
		t.Fatalf("insights: %v", err)
	}

	wantOverview := Overview{
		TotalBudget:    dec("400"),
		TotalSpent:     dec("270"),
		Remaining:      dec("130"),
		PercentUsed:    dec("67.5"),
		DailyAverage:   dec("18"),
		ProjectedSpend: dec("540"),
		Status:         StatusGood,
	}
	if diff := cmp.Diff(wantOverview, got.Overview, decimalEqual); diff != "" {
		t.Errorf("overview mismatch (-want +got):\n%s", diff)
	}

	wantCats := []CategoryInsight{
		{Category: "Fun", Budget: dec("100"), Spent: dec("90"), Percent: dec("90"), Budgeted: true},
		{Category: "Food", Budget: dec("300"), Spent: dec("120"), Percent: dec("40"), Budgeted: true},
		{Category: "Pets", Budget: dec("0"), Spent: dec("60"), Percent: dec("100")},
	}
	if diff := cmp.Diff(wantCats, got.Categories, decimalEqual); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	if len(got.BigTransactions) != 3 || got.BigTransactions[0].Description != "Market" || got.BigTransactions[0].PayerName != "A" {
		t.Errorf("big transactions = %+v", got.BigTransactions)
	}
	if got.Month != "2024-06" {
		t.Errorf("month = %q", got.Month)
	}
}

func TestInsightsStatus(t *testing.T) {
	tests := []struct {
		spent string
		want  BudgetStatus
	}{
		{"85", StatusGood},
		{"85.01", StatusWarning},
		{"100", StatusWarning},
		{"100.01", StatusCritical},
	}
	for _, tt := range tests {
		f := setup(t)
		ctx := context.Background()
		f.svc.SetBudget(ctx, BudgetInput{Category: "All", Amount: dec("100")})
		f.expense(t, "Spend", tt.spent, f.a, "All", june15)

		got, err := f.svc.Insights(ctx, june15)
		if err != nil {
			t.Fatalf("insights: %v", err)
		}
		if got.Overview.Status != tt.want {
			t.Errorf("spent %s: status = %q, want %q", tt.spent, got.Overview.Status, tt.want)
		}
	}
}

func TestSpendByCategoryAndTrend(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.expense(t, "a", "10", f.a, "Food", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	f.expense(t, "b", "30", f.a, "Fun", time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC))
	f.expense(t, "c", "5", f.a, "Food", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
	f.expense(t, "d", "7", f.a, "", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	f.expense(t, "e", "100", f.a, "Food", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))

	byCat, err := f.svc.SpendByCategory(ctx, 2024, time.June)
	if err != nil {
		t.Fatalf("spend by category: %v", err)
	}
	wantCat := []CategorySpend{{Category: "Fun", Total: dec("30")}, {Category: "Food", Total: dec("15")}}
	if diff := cmp.Diff(wantCat, byCat, decimalEqual); diff != "" {
		t.Errorf("by category mismatch (-want +got):\n%s", diff)
	}

	trend, err := f.svc.MonthlyTrend(ctx, june15)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend) != TrendMonths {
		t.Fatalf("trend = %d months", len(trend))
	}
	if trend[0].Month != "2024-01" || !trend[0].Total.Equal(dec("7")) {
		t.Errorf("trend[0] = %+v", trend[0])
	}
	if trend[5].Name != "Jun" || !trend[5].Total.Equal(dec("45")) {
		t.Errorf("trend[5] = %+v", trend[5])
	}
}

func TestRecentTransactions(t *testing.T) {
	f := setup(t)
	for i := 0; i < 25; i++ {
		f.expense(t, "x", "1", f.b, "", june15.Add(time.Duration(i)*time.Hour))
	}
	got, err := f.svc.RecentTransactions(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != RecentLimit {
		t.Errorf("got %d, want %d", len(got), RecentLimit)
	}
	if got[0].PayerName != "B" || !got[0].Date.After(got[1].Date) {
		t.Errorf("first = %+v", got[0])
	}
}
