package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"rollcall/internal/attendance"
	apierrors "rollcall/internal/errors"
	"rollcall/internal/exporter"
	"rollcall/internal/services"
	"rollcall/pkg/contracts/domain"
)

// AttendanceService is the slice of the refresh service the handler needs.
type AttendanceService interface {
	Snapshot() (*domain.Snapshot, error)
	Student(roll string) (*domain.Student, error)
	RunCycle(ctx context.Context) (*domain.Snapshot, error)
}

// AttendanceHandler serves attendance snapshots over HTTP.
type AttendanceHandler struct {
	service AttendanceService
	logger  *slog.Logger
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(service AttendanceService, logger *slog.Logger) *AttendanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceHandler{
		service: service,
		logger:  logger.With(slog.String("component", "attendance_handler")),
	}
}

// Routes returns the attendance routes.
func (h *AttendanceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/summary", h.GetSummary)
	r.Get("/students", h.GetStudents)
	r.Get("/students/{roll}", h.GetStudent)
	r.Get("/today", h.GetToday)
	r.Post("/refresh", h.TriggerRefresh)
	r.Get("/export/csv", h.ExportCSV)
	r.Get("/export/xlsx", h.ExportExcel)

	return r
}

// snapshot resolves the current snapshot, rendering the appropriate error
// when none is available. The bool reports whether a snapshot was written.
func (h *AttendanceHandler) snapshot(w http.ResponseWriter, r *http.Request) (*domain.Snapshot, bool) {
	snap, err := h.service.Snapshot()
	if err == nil {
		return snap, true
	}

	h.logger.WarnContext(r.Context(), "no snapshot to serve",
		slog.String("error", err.Error()))

	if errors.Is(err, services.ErrNoSnapshot) {
		apierrors.RenderError(w, r, apierrors.ErrNoSnapshot)
	} else {
		apierrors.RenderError(w, r, apierrors.CycleFailedError(err))
	}
	return nil, false
}

// GetSummary handles GET /api/attendance/summary.
func (h *AttendanceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":                       "success",
		"cycle_id":                     snap.CycleID,
		"generated_at":                 snap.GeneratedAt.Format(time.RFC3339),
		"summary":                      snap.Summary,
		"average_attendance_formatted": attendance.FormatPercent(snap.Summary.AverageAttendance),
	})
}

// GetStudents handles GET /api/attendance/students.
func (h *AttendanceHandler) GetStudents(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snap.Students,
		"count":  len(snap.Students),
	})
}

// GetStudent handles GET /api/attendance/students/{roll} with a per-subject
// breakdown.
func (h *AttendanceHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	roll := chi.URLParam(r, "roll")
	if roll == "" {
		apierrors.RenderError(w, r, apierrors.ErrValidation("roll", "Roll number is required"))
		return
	}

	st, err := h.service.Student(roll)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStudentNotFound):
			apierrors.RenderError(w, r, apierrors.StudentNotFoundError(roll))
		case errors.Is(err, services.ErrNoSnapshot):
			apierrors.RenderError(w, r, apierrors.ErrNoSnapshot)
		default:
			apierrors.RenderError(w, r, apierrors.CycleFailedError(err))
		}
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":            "success",
		"data":              st,
		"percent_formatted": attendance.FormatPercent(st.Totals.Percent),
	})
}

// GetToday handles GET /api/attendance/today.
func (h *AttendanceHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snap.Summary.Today,
	})
}

// TriggerRefresh handles POST /api/attendance/refresh, running one immediate
// cycle instead of waiting for the next tick.
func (h *AttendanceHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "manual refresh requested")

	snap, err := h.service.RunCycle(r.Context())
	if err != nil {
		apierrors.RenderError(w, r, apierrors.CycleFailedError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":   "success",
		"cycle_id": snap.CycleID,
		"count":    len(snap.Students),
	})
}

// ExportCSV handles GET /api/attendance/export/csv.
func (h *AttendanceHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.csv"`,
		snap.GeneratedAt.Format("2006-01-02")))

	if err := exporter.WriteCSV(w, snap); err != nil {
		h.logger.ErrorContext(r.Context(), "CSV export failed",
			slog.String("error", err.Error()))
	}
}

// ExportExcel handles GET /api/attendance/export/xlsx.
func (h *AttendanceHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.xlsx"`,
		snap.GeneratedAt.Format("2006-01-02")))

	if err := exporter.WriteExcel(w, snap); err != nil {
		h.logger.ErrorContext(r.Context(), "Excel export failed",
			slog.String("error", err.Error()))
	}
}
