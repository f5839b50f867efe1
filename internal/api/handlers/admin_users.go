package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/vitrin-cms/server/internal/api/middleware"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/ids"
	"github.com/vitrin-cms/server/internal/domain/users"
)

// UserService defines the user management operations the admin API needs.
// Auditing happens in the service, which knows the before/after state.
type UserService interface {
	List(ctx context.Context, filters users.Filters) (content.Page[users.User], error)
	Get(ctx context.Context, id string) (*users.User, error)
	CreateAndInvite(ctx context.Context, in users.CreateInput, actorID string) (*users.User, error)
	ResendInvitation(ctx context.Context, id, actorID string) error
	Update(ctx context.Context, id string, in users.UpdateInput, actorID string) (*users.User, error)
	Delete(ctx context.Context, id, actorID string) error
}

type AdminUsersHandler struct {
	userService UserService
	env         string
}

func NewAdminUsersHandler(userService UserService, env string) *AdminUsersHandler {
	return &AdminUsersHandler{userService: userService, env: env}
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminUsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filters, err := users.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	page, err := h.userService.List(r.Context(), filters)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreateUser handles POST /api/v1/admin/users. The account starts inactive
// and an invitation email is sent.
func (h *AdminUsersHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in users.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	user, err := h.userService.CreateAndInvite(r.Context(), in, actorID(r))
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	w.Header().Set("Location", "/api/v1/admin/users/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/admin/users/{id}
func (h *AdminUsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/v1/admin/users/{id}: role and active flag.
func (h *AdminUsersHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var in users.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	user, err := h.userService.Update(r.Context(), id, in, actorID(r))
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}
func (h *AdminUsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.userService.Delete(r.Context(), id, actorID(r)); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResendInvitation handles POST /api/v1/admin/users/{id}/invitation
func (h *AdminUsersHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if err := h.userService.ResendInvitation(r.Context(), id, actorID(r)); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusAccepted, messageResponse{Message: "invitation sent"})
}

func actorID(r *http.Request) string {
	if claims := middleware.AdminClaims(r); claims != nil {
		return claims.Subject
	}
	return ""
}

func pathUUID(r *http.Request, key string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(r.PathValue(key)))
	if err := ids.ValidateUUID(value); err != nil {
		return "", err
	}
	return value, nil
}
