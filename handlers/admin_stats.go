package handlers

import (
	"net/http"

	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// Dashboard godoc
// GET /api/admin/stats
// Response: { "artworks": 40, "pending_orders": 2, ..., "online_admins": 1 }
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.statsService.Dashboard(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, view)
}
