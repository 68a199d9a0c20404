package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreledger/internal/transfer"
	"github.com/dukerupert/choreledger/internal/websocket"
)

type TransferHandler struct {
	base
	svc *transfer.Service
}

func NewTransferHandler(svc *transfer.Service, hub *websocket.Hub, logger *slog.Logger) *TransferHandler {
	return &TransferHandler{base: newBase(hub, logger), svc: svc}
}

type transferRequest struct {
	FromUserID int64 `json:"from_user_id"`
	ToUserID   int64 `json:"to_user_id"`
}

// Request handles POST /api/instances/{id}/transfers. The recipient is
// notified over the websocket.
func (h *TransferHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.svc.Request(r.Context(), id, req.FromUserID, req.ToUserID)
	if err != nil {
		h.fail(w, r, err, "request transfer")
		return
	}
	h.sendToUser(tr.ToUserID, websocket.NewMessage(websocket.EntityTransfer, "requested", tr.ID,
		map[string]any{"chore_instance_id": tr.ChoreInstanceID, "from_user_id": tr.FromUserID}))
	writeJSON(w, http.StatusCreated, tr)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

// Respond handles POST /api/transfers/{id}/respond.
func (h *TransferHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req respondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.svc.Respond(r.Context(), id, req.Accept)
	if err != nil {
		h.fail(w, r, err, "respond to transfer")
		return
	}
	h.sendToUser(tr.FromUserID, websocket.NewMessage(websocket.EntityTransfer, "resolved", tr.ID,
		map[string]any{"status": tr.Status}))
	if req.Accept {
		h.broadcast(websocket.NewMessage(websocket.EntityInstance, "reassigned", tr.ChoreInstanceID,
			map[string]any{"assigned_user_id": tr.ToUserID}))
	}
	writeJSON(w, http.StatusOK, tr)
}

// Incoming handles GET /api/users/{id}/transfers.
func (h *TransferHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	list, err := h.svc.ListIncoming(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "list transfers")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(list))
}
