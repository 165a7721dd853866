package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"speselog/internal/amqp"
	"speselog/internal/cache"
	"speselog/internal/core"
	"speselog/internal/log"
)

// RecordLog is the persistence log as seen by the service.
type RecordLog interface {
	RecordReader
	Append(ctx context.Context, r core.Record) error
	DeleteMatching(ctx context.Context, targets []core.Record) (int, error)
}

// Publisher announces changes to the log. The AMQP client implements it.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.Event) error
}

// ExpenseService orchestrates the log, the aggregator, the totals cache and
// event publishing.
type ExpenseService struct {
	log       RecordLog
	agg       *Aggregator
	publisher Publisher
	totals    cache.Cache[core.MonthlyReport]
	clock     core.Clock
}

// NewExpenseService wires a service. publisher and totals may be nil; a nil
// clock means the wall clock.
func NewExpenseService(records RecordLog, publisher Publisher, totals cache.Cache[core.MonthlyReport], clock core.Clock) *ExpenseService {
	if clock == nil {
		clock = core.SystemClock
	}
	return &ExpenseService{
		log:       records,
		agg:       NewAggregator(records),
		publisher: publisher,
		totals:    totals,
		clock:     clock,
	}
}

// Aggregator exposes the aggregator over the service's log.
func (s *ExpenseService) Aggregator() *Aggregator {
	return s.agg
}

// Today is the service clock's current date.
func (s *ExpenseService) Today() string {
	return core.Today(s.clock)
}

// Add validates and appends a record. Nothing is written when validation fails.
func (s *ExpenseService) Add(ctx context.Context, r core.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r = r.Canonical()

	if err := s.log.Append(ctx, r); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	s.invalidate(r.Date)

	slog.InfoContext(ctx, "Record appended", log.NewFields().
		WithComponent(log.ComponentLedger).
		WithOperation(log.OpAppend).
		WithRecord(r.Amount, r.Category, r.Description, r.Date).
		ToSlice()...)

	if err := s.publish(ctx, amqp.NewRecordAppendedEvent(r, s.clock())); err != nil {
		// the record is already in the log
		slog.ErrorContext(ctx, "Failed to publish record event", log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
	return nil
}

// List returns all records in file order.
func (s *ExpenseService) List(ctx context.Context) ([]core.Record, error) {
	records, err := s.log.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Delete removes every row textually equal to one of targets and returns how
// many rows were removed.
func (s *ExpenseService) Delete(ctx context.Context, targets []core.Record) (int, error) {
	removed, err := s.log.DeleteMatching(ctx, targets)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	if removed == 0 {
		return 0, nil
	}
	for _, r := range targets {
		s.invalidate(r.Date)
	}

	slog.InfoContext(ctx, "Records deleted", log.FieldOperation, log.OpDelete, "requested", len(targets), "removed", removed)

	if err := s.publish(ctx, amqp.NewRecordsDeletedEvent(targets, removed, s.clock())); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event", log.FieldOperation, log.OpPublish, log.FieldError, err)
	}
	return removed, nil
}

// MonthlyReport returns the summary of ym, served from the totals cache when
// possible.
func (s *ExpenseService) MonthlyReport(ctx context.Context, ym core.YearMonth) (core.MonthlyReport, error) {
	key := ym.String()
	if s.totals != nil {
		if report, ok := s.totals.Get(key); ok {
			return report, nil
		}
	}

	report, err := s.agg.Report(ctx, ym)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	if s.totals != nil {
		s.totals.Set(key, report)
	}
	return report, nil
}

// MonthlyTotal returns the sum of ym.
func (s *ExpenseService) MonthlyTotal(ctx context.Context, ym core.YearMonth) (decimal.Decimal, error) {
	report, err := s.MonthlyReport(ctx, ym)
	if err != nil {
		return decimal.Zero, err
	}
	return report.Total, nil
}

// MaybeReport returns the current month's report when today is a month end.
func (s *ExpenseService) MaybeReport(ctx context.Context) (*core.MonthlyReport, error) {
	today := s.clock()
	if !IsMonthEnd(today) {
		return nil, nil
	}
	report, err := s.MonthlyReport(ctx, core.YearMonthOf(today))
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// invalidate drops the cached total of the month a date text belongs to.
// Dates that do not start with a month drop the whole cache.
func (s *ExpenseService) invalidate(date string) {
	if s.totals == nil {
		return
	}
	if len(date) >= len(core.YearMonthFormat) {
		if ym, err := core.ParseYearMonth(date[:len(core.YearMonthFormat)]); err == nil {
			s.totals.Delete(ym.String())
			return
		}
	}
	s.totals.Purge()
}

func (s *ExpenseService) publish(ctx context.Context, event *amqp.Event) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping event", log.FieldEventType, string(event.Type))
		return nil
	}
	return s.publisher.Publish(ctx, event)
}
