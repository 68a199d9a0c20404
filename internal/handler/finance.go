package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/choreledger/internal/finance"
	"github.com/dukerupert/choreledger/internal/websocket"
)

type FinanceHandler struct {
	base
	svc *finance.Service
}

func NewFinanceHandler(svc *finance.Service, hub *websocket.Hub, logger *slog.Logger) *FinanceHandler {
	return &FinanceHandler{base: newBase(hub, logger), svc: svc}
}

func (h *FinanceHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in finance.ExpenseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := h.svc.CreateExpense(r.Context(), in, h.now())
	if err != nil {
		h.fail(w, r, err, "record expense")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityExpense, "created", e.ID, nil))
	writeJSON(w, http.StatusCreated, e)
}

// Recent handles GET /api/expenses/recent?limit=N.
func (h *FinanceHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := finance.RecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 200 {
			badRequest(w, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	txs, err := h.svc.RecentTransactions(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err, "list transactions")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(txs))
}

func (h *FinanceHandler) Balances(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Balances(r.Context())
	if err != nil {
		h.fail(w, r, err, "compute balances")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *FinanceHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.svc.ListBudgets(r.Context())
	if err != nil {
		h.fail(w, r, err, "list budgets")
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// SetBudget handles PUT /api/budgets, creating or replacing the budget for
// the request's category.
func (h *FinanceHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var in finance.BudgetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.svc.SetBudget(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "save budget")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityBudget, "updated", b.ID, nil))
	writeJSON(w, http.StatusOK, b)
}

func (h *FinanceHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var in finance.BudgetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	b, err := h.svc.UpdateBudget(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, "save budget")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityBudget, "updated", b.ID, nil))
	writeJSON(w, http.StatusOK, b)
}

func (h *FinanceHandler) Insights(w http.ResponseWriter, r *http.Request) {
	in, err := h.svc.Insights(r.Context(), h.now())
	if err != nil {
		h.fail(w, r, err, "load insights")
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// Categories handles GET /api/insights/categories?month=YYYY-MM.
func (h *FinanceHandler) Categories(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonth(r, h.now())
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	spend, err := h.svc.SpendByCategory(r.Context(), year, month)
	if err != nil {
		h.fail(w, r, err, "load category spend")
		return
	}
	writeJSON(w, http.StatusOK, spend)
}

func (h *FinanceHandler) Trend(w http.ResponseWriter, r *http.Request) {
	trend, err := h.svc.MonthlyTrend(r.Context(), h.now())
	if err != nil {
		h.fail(w, r, err, "load trend")
		return
	}
	writeJSON(w, http.StatusOK, trend)
}
