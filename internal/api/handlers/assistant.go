package handlers

import (
	"context"
	"net/http"

	"github.com/vitrin-cms/server/internal/assistant"
	"github.com/vitrin-cms/server/internal/audit"
)

type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, req assistant.Request) (assistant.Response, error)
}

type AssistantHandler struct {
	service     Completer
	auditLogger *audit.Logger
	env         string
}

func NewAssistantHandler(service Completer, auditLogger *audit.Logger, env string) *AssistantHandler {
	return &AssistantHandler{service: service, auditLogger: auditLogger, env: env}
}

// Complete handles POST /api/v1/admin/assistant/complete
func (h *AssistantHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if !h.service.Enabled() {
		writeError(w, r, assistant.ErrNotConfigured, h.env)
		return
	}
	var req assistant.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	resp, err := h.service.Complete(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "assistant.complete", "assistant", "", audit.StatusSuccess, map[string]string{
		"task":  string(req.Task),
		"model": resp.Model,
	})
	writeJSON(w, http.StatusOK, resp)
}
