package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nikhilbhutani/speakpost/internal/api/middleware"
)

type UserStore interface {
	UpsertUser(ctx context.Context, userID, fullName, email string) error
}

type UserHandler struct {
	store UserStore
}

func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

type upsertUserRequest struct {
	FullName string `json:"full_name" validate:"max=200"`
	Email    string `json:"email" validate:"required,email"`
}

// UpsertMe records the caller's profile, creating the user on first visit.
func (h *UserHandler) UpsertMe(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := middleware.UserID(r.Context())
	err := h.store.UpsertUser(r.Context(), userID, strings.TrimSpace(req.FullName), strings.ToLower(req.Email))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("upsert user")
		writeError(w, http.StatusInternalServerError, "failed to save user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "user_id": userID})
}
