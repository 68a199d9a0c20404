package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Budget struct {
	ID        int64           `json:"id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Icon      Icon            `json:"icon"`
	Color     string          `json:"color"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
