package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/amqp"
	"speselog/internal/core"
	"speselog/internal/storage"
)

type failingJournal struct{}

func (failingJournal) RecordEvent(context.Context, string, []byte, time.Time) error {
	return errors.New("disk full")
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "speselog.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestHandleEventJournalsRecords(t *testing.T) {
	repo := newRepo(t)
	w := NewEventWorker(repo, repo, nil)
	ctx := context.Background()

	r := core.Record{Amount: "12.00", Category: "Food", Date: "2024-03-15"}
	if err := w.HandleEvent(ctx, amqp.NewRecordAppendedEvent(r, time.Now())); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewRecordsDeletedEvent([]core.Record{r}, 1, time.Now())); err != nil {
		t.Fatalf("handle: %v", err)
	}

	events, err := repo.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].EventType != string(amqp.EventRecordsDeleted) {
		t.Fatalf("unexpected journal %+v", events)
	}
	decoded, err := amqp.EventFromJSON(events[1].Payload)
	if err != nil || decoded.Records[0].Record() != r {
		t.Fatalf("journal payload not decodable: %+v, %v", decoded, err)
	}
}

func TestHandleEventStoresReportOnce(t *testing.T) {
	repo := newRepo(t)
	w := NewEventWorker(repo, repo, nil)
	ctx := context.Background()

	report := core.MonthlyReport{
		Month: core.YearMonth{Year: 2024, Month: time.May},
		Total: decimal.RequireFromString("15.50"),
		Count: 2,
	}
	at := time.Date(2024, 5, 31, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := w.HandleEvent(ctx, amqp.NewMonthlyReportEvent(report, at)); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	reports, err := repo.ListReports(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 || !reports[0].Total.Equal(report.Total) || !reports[0].ReportedAt.Equal(at) {
		t.Fatalf("unexpected reports %+v", reports)
	}
}

func TestHandleEventJournalFailureRequeues(t *testing.T) {
	w := NewEventWorker(failingJournal{}, nil, nil)
	err := w.HandleEvent(context.Background(), amqp.NewRecordAppendedEvent(core.Record{Amount: "1", Category: "x"}, time.Now()))
	if err == nil {
		t.Fatalf("expected error")
	}
}
