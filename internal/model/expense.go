package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCategory = "General"

type Expense struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	PayerID     int64           `json:"payer_id"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	Splits      []Split         `json:"splits"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Split struct {
	DebtorID int64           `json:"debtor_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// SplitTotal sums the split amounts of e.
func (e Expense) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range e.Splits {
		total = total.Add(s.Amount)
	}
	return total
}
