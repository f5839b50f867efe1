package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/vitrin-cms/server/internal/domain/content"
)

type InvitationAccepter interface {
	AcceptInvitation(ctx context.Context, token, password string) error
}

// InvitationsHandler handles the unauthenticated invitation acceptance.
type InvitationsHandler struct {
	users InvitationAccepter
	env   string
}

func NewInvitationsHandler(svc InvitationAccepter, env string) *InvitationsHandler {
	return &InvitationsHandler{users: svc, env: env}
}

type acceptInvitationRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Accept handles POST /api/v1/admin/invitations/accept
func (h *InvitationsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.env)
		return
	}

	problems := content.Problems{}
	if strings.TrimSpace(req.Token) == "" {
		problems.Add("token", "is required")
	}
	if req.Password == "" {
		problems.Add("password", "is required")
	}
	if err := problems.Err(); err != nil {
		writeError(w, r, err, h.env)
		return
	}

	if err := h.users.AcceptInvitation(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "invitation accepted; you can now log in"})
}
