package handlers

import (
	"context"
	"net/http"

	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/domain/settings"
	"github.com/vitrin-cms/server/internal/metrics"
)

type SettingsService interface {
	All(ctx context.Context) ([]settings.Entry, error)
	Update(ctx context.Context, changes map[string]settings.Change) ([]settings.Entry, error)
}

type SettingsHandler struct {
	service     SettingsService
	auditLogger *audit.Logger
	env         string
}

func NewSettingsHandler(service SettingsService, auditLogger *audit.Logger, env string) *SettingsHandler {
	return &SettingsHandler{service: service, auditLogger: auditLogger, env: env}
}

type settingsResponse struct {
	Items []settings.Entry `json:"items"`
}

// List handles GET /api/v1/admin/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.All(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Items: entries})
}

// Update handles PUT /api/v1/admin/settings with a {key: change} object.
// Keys not present are left untouched.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var changes map[string]settings.Change
	if err := decodeJSON(r, &changes); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	entries, err := h.service.Update(r.Context(), changes)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}

	keys := make([]string, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	metrics.ContentMutationsTotal.WithLabelValues("settings", "update").Inc()
	h.auditLogger.LogFromRequest(r, "settings.update", "settings", "", audit.StatusSuccess, map[string]string{
		"keys": joinSorted(keys),
	})
	writeJSON(w, http.StatusOK, settingsResponse{Items: entries})
}
