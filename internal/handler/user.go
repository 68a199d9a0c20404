package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/choreledger/internal/chore"
	"github.com/dukerupert/choreledger/internal/model"
	"github.com/dukerupert/choreledger/internal/push"
	"github.com/dukerupert/choreledger/internal/store"
	"github.com/dukerupert/choreledger/internal/websocket"
)

const defaultColor = "#6366f1"

type UserHandler struct {
	base
	users  *store.UserStore
	chores *chore.Service
}

func NewUserHandler(users *store.UserStore, chores *chore.Service, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{base: newBase(hub, logger), users: users, chores: chores}
}

type userRequest struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Avatar    string  `json:"avatar"`
	NotifTime *string `json:"notif_time"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(users))
}

// Create handles POST /api/users, the onboarding step.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.fail(w, r, model.Invalid("name", "is required"), "create user")
		return
	}
	if req.Color == "" {
		req.Color = defaultColor
	}

	u, err := h.users.Create(r.Context(), req.Name, req.Color, req.Avatar)
	if err != nil {
		h.fail(w, r, err, "create user")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityUser, "created", u.ID, nil))
	writeJSON(w, http.StatusCreated, u)
}

// Update handles PUT /api/users/{id}. Omitted fields keep their value; an
// empty notif_time turns reminders off.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "update user")
		return
	}
	if u == nil {
		h.fail(w, r, model.ErrUserNotFound, "update user")
		return
	}

	name, color, avatar, notif := u.Name, u.Color, u.Avatar, u.NotifTime
	if n := strings.TrimSpace(req.Name); n != "" {
		name = n
	}
	if req.Color != "" {
		color = req.Color
	}
	if req.Avatar != "" {
		avatar = req.Avatar
	}
	if req.NotifTime != nil {
		t := strings.TrimSpace(*req.NotifTime)
		switch {
		case t == "":
			notif = nil
		default:
			if _, err := push.ParseNotifTime(t); err != nil {
				h.fail(w, r, model.Invalid("notif_time", "must be HH:MM"), "update user")
				return
			}
			notif = &t
		}
	}

	u, err = h.users.UpdateProfile(r.Context(), id, name, color, avatar, notif)
	if err != nil {
		h.fail(w, r, err, "update user")
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntityUser, "updated", u.ID, nil))
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	d, err := h.chores.Dashboard(r.Context(), id, h.now())
	if err != nil {
		h.fail(w, r, err, "load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.chores.Leaderboard(r.Context())
	if err != nil {
		h.fail(w, r, err, "load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(entries))
}
