package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"speselog/internal/amqp"
	"speselog/internal/core"
	"speselog/internal/log"
)

// ErrSchedulerRunning is returned by Run when the scheduler is already running.
var ErrSchedulerRunning = errors.New("month end scheduler is already running")

// ReportSource computes the month-end report for a given day.
type ReportSource interface {
	MaybeReportMonthlyTotal(ctx context.Context, today time.Time) (*core.MonthlyReport, error)
}

// ReportHistory remembers which months have already been announced.
type ReportHistory interface {
	HasReport(ctx context.Context, ym core.YearMonth) (bool, error)
	// SaveReport stores the report unless its month already has one and
	// reports whether it was stored.
	SaveReport(ctx context.Context, report core.MonthlyReport, at time.Time) (bool, error)
}

// MonthEndSchedulerConfig holds configuration for the scheduler.
type MonthEndSchedulerConfig struct {
	// CheckInterval is how often the clock is checked (default: 1h)
	CheckInterval time.Duration
}

// DefaultMonthEndSchedulerConfig returns sensible defaults
func DefaultMonthEndSchedulerConfig() MonthEndSchedulerConfig {
	return MonthEndSchedulerConfig{CheckInterval: time.Hour}
}

// MonthEndScheduler announces each month's total once, on the last day of the
// month.
type MonthEndScheduler struct {
	source    ReportSource
	history   ReportHistory
	publisher Publisher
	clock     core.Clock
	config    MonthEndSchedulerConfig

	mu      sync.Mutex
	running bool
}

func NewMonthEndScheduler(source ReportSource, history ReportHistory, publisher Publisher, clock core.Clock, config MonthEndSchedulerConfig) *MonthEndScheduler {
	if clock == nil {
		clock = core.SystemClock
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultMonthEndSchedulerConfig().CheckInterval
	}
	return &MonthEndScheduler{
		source:    source,
		history:   history,
		publisher: publisher,
		clock:     clock,
		config:    config,
	}
}

// Check announces the current month if today is its last day and it has not
// been announced yet. It returns the report only when this call announced it.
func (s *MonthEndScheduler) Check(ctx context.Context) (*core.MonthlyReport, error) {
	now := s.clock()
	if !IsMonthEnd(now) {
		return nil, nil
	}

	ym := core.YearMonthOf(now)
	done, err := s.history.HasReport(ctx, ym)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, nil
	}

	report, err := s.source.MaybeReportMonthlyTotal(ctx, now)
	if err != nil || report == nil {
		return nil, err
	}

	stored, err := s.history.SaveReport(ctx, *report, now)
	if err != nil {
		return nil, err
	}
	if !stored {
		// another process announced it between the check and the save
		return nil, nil
	}

	fields := log.NewFields().
		WithComponent(log.ComponentScheduler).
		WithOperation(log.OpReport).
		WithYearMonth(ym.String())
	slog.InfoContext(ctx, "Monthly total announced",
		append(fields.ToSlice(), "total", report.Total.String(), log.FieldCount, report.Count)...)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, amqp.NewMonthlyReportEvent(*report, now)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish monthly report", log.FieldYearMonth, ym.String(), log.FieldError, err)
		}
	}
	return report, nil
}

// Run checks immediately and then on every interval until ctx is done.
func (s *MonthEndScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	slog.InfoContext(ctx, "Month end scheduler started", log.FieldComponent, log.ComponentScheduler, "check_interval", s.config.CheckInterval)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	s.check(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Month end scheduler stopped")
			return nil
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// IsRunning returns whether Run is in progress.
func (s *MonthEndScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *MonthEndScheduler) check(ctx context.Context) {
	if _, err := s.Check(ctx); err != nil {
		slog.ErrorContext(ctx, "Month end check failed", log.FieldComponent, log.ComponentScheduler, log.FieldError, err)
	}
}

// MemoryHistory is a ReportHistory kept in memory, for shells that run
// without SQLite.
type MemoryHistory struct {
	mu      sync.RWMutex
	reports map[core.YearMonth]core.StoredReport
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{reports: make(map[core.YearMonth]core.StoredReport)}
}

func (h *MemoryHistory) HasReport(_ context.Context, ym core.YearMonth) (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.reports[ym]
	return ok, nil
}

func (h *MemoryHistory) SaveReport(_ context.Context, report core.MonthlyReport, at time.Time) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.reports[report.Month]; ok {
		return false, nil
	}
	h.reports[report.Month] = core.StoredReport{MonthlyReport: report, ReportedAt: at}
	return true, nil
}

// ListReports returns stored reports, most recent month first. limit <= 0 means all.
func (h *MemoryHistory) ListReports(_ context.Context, limit int) ([]core.StoredReport, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]core.StoredReport, 0, len(h.reports))
	for _, r := range h.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month.String() > out[j].Month.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
