package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreledger/internal/chore"
	"github.com/dukerupert/choreledger/internal/websocket"
)

type ChoreHandler struct {
	base
	svc *chore.Service
}

func NewChoreHandler(svc *chore.Service, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{base: newBase(hub, logger), svc: svc}
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "list chores")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(chores))
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in chore.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.svc.CreateChore(r.Context(), in, h.now())
	if err != nil {
		h.fail(w, r, err, "create chore")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityChore, "created", c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var in chore.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.svc.UpdateChore(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, "update chore")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityChore, "updated", c.ID, nil))
	writeJSON(w, http.StatusOK, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := h.svc.DeleteChore(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete chore")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityChore, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /api/instances/{id}/complete.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	res, err := h.svc.CompleteInstance(r.Context(), id, h.now())
	if err != nil {
		h.fail(w, r, err, "complete chore")
		return
	}
	if !res.AlreadyCompleted {
		var extra map[string]any
		if res.Next != nil {
			extra = map[string]any{"next_instance_id": res.Next.ID}
		}
		h.broadcast(websocket.NewMessage(websocket.EntityInstance, "completed", id, extra))
		if res.User != nil {
			h.broadcast(websocket.NewMessage(websocket.EntityUser, "updated", res.User.ID, nil))
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ChoreHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	inst, err := h.svc.UncompleteInstance(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "uncomplete chore")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityInstance, "uncompleted", id, nil))
	writeJSON(w, http.StatusOK, inst)
}

// Calendar handles GET /api/calendar?month=YYYY-MM.
func (h *ChoreHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	year, month, err := parseMonth(r, now)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	tasks, err := h.svc.Calendar(r.Context(), year, month, now)
	if err != nil {
		h.fail(w, r, err, "load calendar")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}
