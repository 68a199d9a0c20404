package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreledger/internal/push"
)

type PushHandler struct {
	base
	svc      *push.Service
	reminder *push.Reminder
}

func NewPushHandler(svc *push.Service, reminder *push.Reminder, logger *slog.Logger) *PushHandler {
	return &PushHandler{base: newBase(nil, logger), svc: svc, reminder: reminder}
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in push.SubscribeInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sub, err := h.svc.Subscribe(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/users/{id}/push
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	n, err := h.svc.Unsubscribe(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "delete subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// TestNotification handles POST /api/users/{id}/push/test
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if !h.svc.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "push notifications are not configured"})
		return
	}
	d, err := h.svc.SendTest(r.Context(), id)
	if errors.Is(err, push.ErrNoSubscriptions) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no push subscriptions for user"})
		return
	}
	if err != nil {
		h.fail(w, r, err, "send test notification")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.svc.VAPIDPublicKey()})
}

// Reminders handles POST /api/cron/reminders, the hook for an external
// scheduler.
func (h *PushHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "push notifications are not configured"})
		return
	}
	res, err := h.reminder.Sweep(r.Context(), h.now())
	if err != nil {
		h.fail(w, r, err, "send reminders")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
