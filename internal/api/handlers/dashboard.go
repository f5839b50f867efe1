package handlers

import (
	"context"
	"net/http"

	"github.com/vitrin-cms/server/internal/domain/dashboard"
)

type DashboardService interface {
	Summary(ctx context.Context) (*dashboard.Summary, error)
}

type DashboardHandler struct {
	service DashboardService
	env     string
}

func NewDashboardHandler(service DashboardService, env string) *DashboardHandler {
	return &DashboardHandler{service: service, env: env}
}

// Summary handles GET /api/v1/admin/dashboard
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
