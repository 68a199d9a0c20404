package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/choreledger/internal/backup"
	"github.com/dukerupert/choreledger/internal/websocket"
)

type BackupHandler struct {
	base
	mgr *backup.Manager
}

func NewBackupHandler(mgr *backup.Manager, hub *websocket.Hub, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{base: newBase(hub, logger), mgr: mgr}
}

// Run handles POST /api/backups.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	b, err := h.mgr.Run(r.Context())
	switch {
	case errors.Is(err, backup.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, backup.ErrInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		h.fail(w, r, err, "run backup")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityBackup, "completed", b.ID, nil))
	writeJSON(w, http.StatusCreated, b)
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.mgr.List(r.Context(), 0)
	if err != nil {
		h.fail(w, r, err, "list backups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": h.mgr.Status(), "backups": list})
}
