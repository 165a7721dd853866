// Package worker consumes change events from the broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"speselog/internal/amqp"
	"speselog/internal/core"
	"speselog/internal/log"
	"speselog/internal/services"
)

// Journal stores every received event.
type Journal interface {
	RecordEvent(ctx context.Context, eventType string, payload []byte, at time.Time) error
}

// EventWorker journals events and keeps the report history in step with the
// month-end announcements it receives.
type EventWorker struct {
	journal Journal
	history services.ReportHistory
	clock   core.Clock
}

func NewEventWorker(journal Journal, history services.ReportHistory, clock core.Clock) *EventWorker {
	if clock == nil {
		clock = core.SystemClock
	}
	return &EventWorker{
		journal: journal,
		history: history,
		clock:   clock,
	}
}

// HandleEvent processes a single event. An error leaves the message on the
// queue for redelivery.
func (w *EventWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	slog.InfoContext(ctx, "Processing event",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpConsume,
		log.FieldEventType, string(event.Type),
		"records", len(event.Records),
		"timestamp", event.Timestamp)

	payload, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := w.journal.RecordEvent(ctx, string(event.Type), payload, w.clock()); err != nil {
		return fmt.Errorf("journal event: %w", err)
	}

	if event.Type != amqp.EventMonthlyReport {
		return nil
	}
	return w.storeReport(ctx, event)
}

func (w *EventWorker) storeReport(ctx context.Context, event *amqp.Event) error {
	report, err := event.Report.MonthlyReport()
	if err != nil {
		// redelivery cannot fix a bad payload
		slog.ErrorContext(ctx, "Dropping malformed monthly report", log.FieldError, err)
		return nil
	}

	at := event.Timestamp
	if at.IsZero() {
		at = w.clock()
	}
	stored, err := w.history.SaveReport(ctx, report, at)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.Month, err)
	}
	if !stored {
		slog.InfoContext(ctx, "Monthly report already recorded", log.FieldYearMonth, report.Month.String())
	}
	return nil
}
