// ABOUTME: Health endpoint reporting upstream reachability and cache counters
// ABOUTME: Always answers 200 since the portal keeps serving cached data while the API is down

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/markalston/acreditaciones-portal/models"
)

const healthProbeTimeout = 5 * time.Second

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	stats := h.responses.Stats()
	resp := models.HealthResponse{
		Status:   "ok",
		Upstream: "ok",
		Cache: map[string]any{
			"backend": h.cfg.CacheBackend,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"errors":  stats.Errors,
		},
	}

	if probe := h.diagnostics.Connectivity(ctx); !probe.Success {
		resp.Status = "degraded"
		resp.Upstream = "unreachable"
	}

	h.writeJSON(w, http.StatusOK, resp)
}
