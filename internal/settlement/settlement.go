// Package settlement derives who owes whom from the expense ledger.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/choreledger/internal/model"
)

// Epsilon is the smallest balance treated as non-zero.
var Epsilon = decimal.New(1, -2)

// Balance is a user's net position: positive means they are owed money,
// negative means they owe.
type Balance struct {
	UserID int64           `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// Settlement is one suggested payment.
type Settlement struct {
	From   int64           `json:"from"`
	To     int64           `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// Result holds every user's net balance and the transfers that clear them.
type Result struct {
	Balances    []Balance    `json:"balances"`
	Settlements []Settlement `json:"settlements"`
}

// BalanceOf returns the balance recorded for userID, or zero.
func (r Result) BalanceOf(userID int64) decimal.Decimal {
	for _, b := range r.Balances {
		if b.UserID == userID {
			return b.Amount
		}
	}
	return decimal.Zero
}

// Compute nets every expense into per-user balances and pairs debtors with
// creditors greedily. Balances start at zero for every id in userIDs, in that
// order; ids seen only in the history are appended in order of first
// appearance. The payer is credited the full amount and each debtor is
// charged their split.
func Compute(expenses []model.Expense, userIDs []int64) Result {
	var order []int64
	bal := make(map[int64]decimal.Decimal)
	touch := func(id int64) {
		if _, ok := bal[id]; !ok {
			bal[id] = decimal.Zero
			order = append(order, id)
		}
	}
	for _, id := range userIDs {
		touch(id)
	}

	for _, e := range expenses {
		touch(e.PayerID)
		bal[e.PayerID] = bal[e.PayerID].Add(e.Amount)
		for _, s := range e.Splits {
			touch(s.DebtorID)
			bal[s.DebtorID] = bal[s.DebtorID].Sub(s.Amount)
		}
	}

	res := Result{Balances: make([]Balance, 0, len(order)), Settlements: []Settlement{}}
	for _, id := range order {
		res.Balances = append(res.Balances, Balance{UserID: id, Amount: bal[id]})
	}
	res.Settlements = settle(res.Balances)
	return res
}

type position struct {
	id     int64
	amount decimal.Decimal
}

func settle(balances []Balance) []Settlement {
	var debtors, creditors []*position
	negEps := Epsilon.Neg()
	for _, b := range balances {
		switch {
		case b.Amount.LessThan(negEps):
			debtors = append(debtors, &position{id: b.UserID, amount: b.Amount.Neg()})
		case b.Amount.GreaterThan(Epsilon):
			creditors = append(creditors, &position{id: b.UserID, amount: b.Amount})
		}
	}

	out := []Settlement{}
	d, c := 0, 0
	for d < len(debtors) && c < len(creditors) {
		debtor, creditor := debtors[d], creditors[c]
		amt := decimal.Min(debtor.amount, creditor.amount)

		if rounded := amt.Round(2); rounded.IsPositive() {
			out = append(out, Settlement{From: debtor.id, To: creditor.id, Amount: rounded})
		}

		debtor.amount = debtor.amount.Sub(amt)
		creditor.amount = creditor.amount.Sub(amt)
		if debtor.amount.LessThan(Epsilon) {
			d++
		}
		if creditor.amount.LessThan(Epsilon) {
			c++
		}
	}
	return out
}
