// Package handler implements the JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/websocket"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// base carries what every handler needs.
type base struct {
	hub    *websocket.Hub
	logger *slog.Logger
	now    func() time.Time
}

func newBase(hub *websocket.Hub, logger *slog.Logger) base {
	return base{hub: hub, logger: logger, now: time.Now}
}

func (b base) broadcast(msg websocket.Message) {
	if b.hub != nil {
		b.hub.Broadcast(msg)
	}
}

func (b base) sendToUser(userID int64, msg websocket.Message) {
	if b.hub != nil {
		b.hub.SendToUser(userID, msg)
	}
}

// fail writes the response for err. Validation and not-found errors are
// reported to the caller; anything else is logged and answered with a
// generic message for action.
func (b base) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Msg, Field: ve.Field})
	case errors.Is(err, model.ErrAlreadyResolved):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: model.ErrAlreadyResolved.Error()})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFoundMessage(err)})
	default:
		b.logger.ErrorContext(r.Context(), "request failed", "action", action, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to " + action})
	}
}

var notFoundErrors = []error{
	model.ErrInstanceNotFound,
	model.ErrChoreNotFound,
	model.ErrTransferNotFound,
	model.ErrBudgetNotFound,
	model.ErrUserNotFound,
}

func notFoundMessage(err error) string {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return model.ErrNotFound.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON")
		return false
	}
	return true
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", idStr)
	}
	return id, nil
}

// parseMonth reads a "YYYY-MM" query value, defaulting to the month of now.
func parseMonth(r *http.Request, now time.Time) (int, time.Month, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		now = now.UTC()
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, errors.New("month must be YYYY-MM")
	}
	return t.Year(), t.Month(), nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
