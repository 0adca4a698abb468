// Package services contains the refresh service that drives the periodic
// fetch-parse-aggregate cycle and owns the current attendance snapshot.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rollcall/internal/attendance"
	"rollcall/internal/sheets"
	"rollcall/pkg/contracts/domain"
)

// SheetFetcher retrieves all subject sheets for one cycle.
type SheetFetcher interface {
	FetchAll(ctx context.Context, sources []sheets.Source) ([]domain.Sheet, error)
}

// RefreshService runs refresh cycles on a fixed interval. Each cycle either
// produces a complete snapshot that atomically replaces the previous one, or
// fails as a whole; a failed cycle's error replaces the data until the next
// successful cycle. Cycles are serialized by a mutex, so a manually
// triggered cycle can never interleave with a scheduled one.
type RefreshService struct {
	fetcher      SheetFetcher
	aggregator   *attendance.Aggregator
	sources      []sheets.Source
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *slog.Logger
	metrics      *cycleMetrics

	cycleMu sync.Mutex // serializes cycles

	mu       sync.RWMutex // guards the fields below
	snapshot *domain.Snapshot
	lastErr  error
	lastRun  time.Time
}

// RefreshServiceConfig configures a RefreshService.
type RefreshServiceConfig struct {
	Sources      []sheets.Source
	Interval     time.Duration
	CycleTimeout time.Duration
}

// NewRefreshService creates a refresh service. Metrics are registered on reg;
// pass a fresh registry in tests.
func NewRefreshService(
	fetcher SheetFetcher,
	aggregator *attendance.Aggregator,
	cfg RefreshServiceConfig,
	logger *slog.Logger,
	reg prometheus.Registerer,
) *RefreshService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	return &RefreshService{
		fetcher:      fetcher,
		aggregator:   aggregator,
		sources:      cfg.Sources,
		interval:     cfg.Interval,
		cycleTimeout: cfg.CycleTimeout,
		logger:       logger.With(slog.String("component", "refresh_service")),
		metrics:      newCycleMetrics(reg),
	}
}

// Run executes one immediate cycle and then one cycle per interval tick
// until ctx is cancelled.
func (s *RefreshService) Run(ctx context.Context) {
	s.logger.InfoContext(ctx, "refresh loop starting",
		slog.String("interval", s.interval.String()),
		slog.Int("sheet_count", len(s.sources)))

	s.runCycleLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "refresh loop stopping")
			return
		case <-ticker.C:
			s.runCycleLogged(ctx)
		}
	}
}

func (s *RefreshService) runCycleLogged(ctx context.Context) {
	if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "refresh cycle failed",
			slog.String("error", err.Error()))
	}
}

// RunCycle runs one complete fetch-and-aggregate pass and swaps the result
// in. On failure the cycle's error replaces the previous snapshot; there is
// no fallback to stale data.
func (s *RefreshService) RunCycle(ctx context.Context) (*domain.Snapshot, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.cycle(ctx)
	s.metrics.observe(time.Since(start), err, snap)

	s.mu.Lock()
	s.lastRun = time.Now()
	if err != nil {
		s.snapshot = nil
		s.lastErr = err
	} else {
		s.snapshot = snap
		s.lastErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "refresh cycle completed",
		slog.String("cycle_id", snap.CycleID),
		slog.Int("student_count", len(snap.Students)),
		slog.String("duration", time.Since(start).String()))
	return snap, nil
}

func (s *RefreshService) cycle(ctx context.Context) (*domain.Snapshot, error) {
	fetched, err := s.fetcher.FetchAll(ctx, s.sources)
	if err != nil {
		return nil, fmt.Errorf("refresh cycle: %w", err)
	}
	return s.aggregator.BuildSnapshot(ctx, fetched), nil
}

// Snapshot returns the current snapshot. It returns the last cycle's error
// if that cycle failed, or ErrNoSnapshot before the first cycle completes.
func (s *RefreshService) Snapshot() (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastErr != nil {
		return nil, s.lastErr
	}
	if s.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return s.snapshot, nil
}

// Student returns the current snapshot's record for one roll number.
func (s *RefreshService) Student(roll string) (*domain.Student, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	st := snap.Lookup(roll)
	if st == nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

// LastRun reports when the most recent cycle finished and whether it
// succeeded.
func (s *RefreshService) LastRun() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastErr == nil && s.snapshot != nil
}

// cycleMetrics holds the Prometheus instruments for refresh cycles.
type cycleMetrics struct {
	cycles   *prometheus.CounterVec
	duration prometheus.Histogram
	students prometheus.Gauge
}

func newCycleMetrics(reg prometheus.Registerer) *cycleMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &cycleMetrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_refresh_cycles_total",
			Help: "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_refresh_cycle_duration_seconds",
			Help:    "Duration of complete refresh cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		students: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_students",
			Help: "Students in the current snapshot.",
		}),
	}
	reg.MustRegister(m.cycles, m.duration, m.students)
	return m
}

func (m *cycleMetrics) observe(elapsed time.Duration, err error, snap *domain.Snapshot) {
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.cycles.WithLabelValues("failure").Inc()
		return
	}
	m.cycles.WithLabelValues("success").Inc()
	m.students.Set(float64(len(snap.Students)))
}
