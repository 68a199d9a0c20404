package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/choreledger/internal/model"
)

type BudgetStatus string

const (
	StatusGood     BudgetStatus = "good"
	StatusWarning  BudgetStatus = "warning"
	StatusCritical BudgetStatus = "critical"
)

// WarningRatio is the share of the total budget above which spending is
// flagged.
var WarningRatio = decimal.RequireFromString("0.85")

// BigTransactionLimit caps the largest-transactions list in Insights.
const BigTransactionLimit = 5

var hundred = decimal.NewFromInt(100)

type Overview struct {
	TotalBudget    decimal.Decimal `json:"total_budget"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentUsed    decimal.Decimal `json:"percent_used"`
	DailyAverage   decimal.Decimal `json:"daily_average"`
	ProjectedSpend decimal.Decimal `json:"projected_spend"`
	Status         BudgetStatus    `json:"status"`
}

type CategoryInsight struct {
	Category string          `json:"category"`
	Budget   decimal.Decimal `json:"budget"`
	Spent    decimal.Decimal `json:"spent"`
	Percent  decimal.Decimal `json:"percent"`
	Budgeted bool            `json:"budgeted"`
}

type Insights struct {
	Month           string            `json:"month"`
	Overview        Overview          `json:"overview"`
	Categories      []CategoryInsight `json:"categories"`
	BigTransactions []Transaction     `json:"big_transactions"`
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

func sumByCategory(expenses []model.Expense) (map[string]decimal.Decimal, []string) {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = model.DefaultCategory
		}
		if _, ok := sums[cat]; !ok {
			order = append(order, cat)
		}
		sums[cat] = sums[cat].Add(e.Amount)
	}
	return sums, order
}

// Insights compares the month-to-date spend of now's month with the
// budgets. Daily average divides by the current day of month and the
// projection extends it to the full month. Status turns warning above 85%
// of the total budget and critical once spend exceeds it.
func (s *Service) Insights(ctx context.Context, now time.Time) (*Insights, error) {
	from, to := monthBounds(now)

	budgets, err := s.budgets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	expenses, err := s.expenses.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}

	totalBudget := decimal.Zero
	for _, b := range budgets {
		totalBudget = totalBudget.Add(b.Amount)
	}
	totalSpent := decimal.Zero
	for _, e := range expenses {
		totalSpent = totalSpent.Add(e.Amount)
	}

	day := decimal.NewFromInt(int64(now.UTC().Day()))
	days := decimal.NewFromInt(int64(to.AddDate(0, 0, -1).Day()))
	daily := totalSpent.Div(day)

	status := StatusGood
	switch {
	case totalSpent.GreaterThan(totalBudget):
		status = StatusCritical
	case totalSpent.GreaterThan(totalBudget.Mul(WarningRatio)):
		status = StatusWarning
	}

	sums, order := sumByCategory(expenses)
	cats := make([]CategoryInsight, 0, len(budgets)+len(order))
	budgeted := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		budgeted[b.Category] = true
		spent := sums[b.Category]
		cats = append(cats, CategoryInsight{
			Category: b.Category,
			Budget:   b.Amount,
			Spent:    spent,
			Percent:  percentOf(spent, b.Amount),
			Budgeted: true,
		})
	}
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Percent.GreaterThan(cats[j].Percent) })
	for _, cat := range order {
		if budgeted[cat] {
			continue
		}
		cats = append(cats, CategoryInsight{
			Category: cat,
			Budget:   decimal.Zero,
			Spent:    sums[cat],
			Percent:  hundred,
		})
	}

	big := append([]model.Expense{}, expenses...)
	sort.SliceStable(big, func(i, j int) bool { return big[i].Amount.GreaterThan(big[j].Amount) })
	if len(big) > BigTransactionLimit {
		big = big[:BigTransactionLimit]
	}
	bigTx, err := s.withPayers(ctx, big)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}

	return &Insights{
		Month: from.Format("2006-01"),
		Overview: Overview{
			TotalBudget:    totalBudget,
			TotalSpent:     totalSpent,
			Remaining:      totalBudget.Sub(totalSpent),
			PercentUsed:    percentOf(totalSpent, totalBudget),
			DailyAverage:   daily.Round(2),
			ProjectedSpend: daily.Mul(days).Round(2),
			Status:         status,
		},
		Categories:      cats,
		BigTransactions: bigTx,
	}, nil
}

type CategorySpend struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// SpendByCategory totals a calendar month's expenses per category, largest
// first.
func (s *Service) SpendByCategory(ctx context.Context, year int, month time.Month) ([]CategorySpend, error) {
	from, to := monthBounds(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
	expenses, err := s.expenses.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("spend by category: %w", err)
	}

	sums, order := sumByCategory(expenses)
	out := make([]CategorySpend, 0, len(order))
	for _, cat := range order {
		out = append(out, CategorySpend{Category: cat, Total: sums[cat]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	return out, nil
}

type MonthTotal struct {
	Month string          `json:"month"`
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

// TrendMonths is the number of months in MonthlyTrend, current one included.
const TrendMonths = 6

// MonthlyTrend totals spending for each of the last six months, oldest
// first.
func (s *Service) MonthlyTrend(ctx context.Context, now time.Time) ([]MonthTotal, error) {
	current, _ := monthBounds(now)
	start := current.AddDate(0, -(TrendMonths - 1), 0)

	expenses, err := s.expenses.ListBetween(ctx, start, current.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}

	out := make([]MonthTotal, TrendMonths)
	for i := range out {
		m := start.AddDate(0, i, 0)
		out[i] = MonthTotal{Month: m.Format("2006-01"), Name: m.Format("Jan"), Total: decimal.Zero}
	}
	for _, e := range expenses {
		d := e.Date.UTC()
		i := (d.Year()-start.Year())*12 + int(d.Month()) - int(start.Month())
		if i >= 0 && i < TrendMonths {
			out[i].Total = out[i].Total.Add(e.Amount)
		}
	}
	return out, nil
}
