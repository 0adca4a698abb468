package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// CycleStatus reports the timing and outcome of the most recent refresh
// cycle.
type CycleStatus interface {
	LastRun() (time.Time, bool)
}

// HealthHandler serves liveness/readiness information.
type HealthHandler struct {
	status  CycleStatus
	started time.Time
	version string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(status CycleStatus, version string) *HealthHandler {
	return &HealthHandler{
		status:  status,
		started: time.Now(),
		version: version,
	}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.GetHealth)
	return r
}

// GetHealth handles GET /api/health. The process is alive as long as it can
// answer; readiness reflects whether the last refresh cycle succeeded.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	lastRun, ok := h.status.LastRun()

	status := "ok"
	if !ok {
		status = "degraded"
	}

	resp := map[string]interface{}{
		"status":  status,
		"version": h.version,
		"uptime":  time.Since(h.started).String(),
	}
	if !lastRun.IsZero() {
		resp["last_refresh"] = lastRun.Format(time.RFC3339)
		resp["last_refresh_ok"] = ok
	}
	render.JSON(w, r, resp)
}
