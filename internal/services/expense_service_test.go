package services

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/amqp"
	"speselog/internal/cache"
	"speselog/internal/core"
	"speselog/internal/ledger"
)

type recordingPublisher struct {
	events []*amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *amqp.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func fixedClock(t time.Time) core.Clock {
	return func() time.Time { return t }
}

func newTestService(t *testing.T, pub Publisher, now time.Time) (*ExpenseService, *ledger.Log) {
	t.Helper()
	log := ledger.Open(filepath.Join(t.TempDir(), "expenses.csv"))
	totals := cache.NewLRUCache[core.MonthlyReport](8, time.Minute)
	return NewExpenseService(log, pub, totals, fixedClock(now)), log
}

func TestExpenseServiceAddValidatesBeforeWriting(t *testing.T) {
	svc, log := newTestService(t, nil, time.Now())
	ctx := context.Background()

	tests := []struct {
		name string
		rec  core.Record
		want error
	}{
		{name: "empty amount", rec: core.Record{Category: "Food", Date: "2024-01-01"}, want: core.ErrEmptyAmount},
		{name: "blank category", rec: core.Record{Amount: "1", Category: "  ", Date: "2024-01-01"}, want: core.ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Add(ctx, tt.rec); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	records, err := log.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("rejected records must not reach the log, got %+v", records)
	}
}

func TestExpenseServiceAddPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	r := core.Record{Amount: "12.00", Category: "Food", Date: "2024-03-15"}
	if err := svc.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.EventRecordAppended {
		t.Fatalf("expected one appended event, got %+v", pub.events)
	}
	if pub.events[0].Records[0].Record() != r {
		t.Fatalf("unexpected payload %+v", pub.events[0].Records)
	}
}

func TestExpenseServicePublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, pub, time.Now())
	ctx := context.Background()

	if err := svc.Add(ctx, core.Record{Amount: "1", Category: "Food", Date: "2024-03-15"}); err != nil {
		t.Fatalf("publish failure should not fail add: %v", err)
	}
	records, err := svc.List(ctx)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected record to be stored, got %+v, %v", records, err)
	}
}

func TestExpenseServiceTotalsCacheInvalidation(t *testing.T) {
	svc, _ := newTestService(t, nil, time.Now())
	ctx := context.Background()
	may := core.YearMonth{Year: 2024, Month: time.May}

	for _, r := range mayRecords {
		if err := svc.Add(ctx, r); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	total, err := svc.MonthlyTotal(ctx, may)
	if err != nil || !total.Equal(decimal.RequireFromString("15.50")) {
		t.Fatalf("got %s, %v", total, err)
	}

	if err := svc.Add(ctx, core.Record{Amount: "4.50", Category: "Food", Date: "2024-05-20"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	total, err = svc.MonthlyTotal(ctx, may)
	if err != nil || !total.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("cache not invalidated on add: got %s, %v", total, err)
	}

	removed, err := svc.Delete(ctx, []core.Record{mayRecords[0]})
	if err != nil || removed != 1 {
		t.Fatalf("delete: removed=%d err=%v", removed, err)
	}
	total, err = svc.MonthlyTotal(ctx, may)
	if err != nil || !total.Equal(decimal.RequireFromString("9.50")) {
		t.Fatalf("cache not invalidated on delete: got %s, %v", total, err)
	}
}

func TestExpenseServiceDelete(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub, time.Now())
	ctx := context.Background()

	if _, err := svc.Delete(ctx, []core.Record{{Amount: "1"}}); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing file error, got %v", err)
	}

	dup := core.Record{Amount: "3", Category: "Food", Date: "2024-06-01"}
	for i := 0; i < 2; i++ {
		if err := svc.Add(ctx, dup); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	pub.events = nil

	removed, err := svc.Delete(ctx, []core.Record{{Amount: "9", Category: "None", Date: "2024-06-01"}})
	if err != nil || removed != 0 || len(pub.events) != 0 {
		t.Fatalf("absent record: removed=%d err=%v events=%d", removed, err, len(pub.events))
	}

	removed, err = svc.Delete(ctx, []core.Record{dup})
	if err != nil || removed != 2 {
		t.Fatalf("expected both duplicates removed, got %d, %v", removed, err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != amqp.EventRecordsDeleted || pub.events[0].Removed != 2 {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestExpenseServiceMaybeReport(t *testing.T) {
	svc, _ := newTestService(t, nil, time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if err := svc.Add(ctx, core.Record{Amount: "7", Category: "Health", Date: "2024-02-10"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	report, err := svc.MaybeReport(ctx)
	if err != nil || report == nil {
		t.Fatalf("expected report on leap day, got %+v, %v", report, err)
	}
	if report.Month.String() != "2024-02" || !report.Total.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected report %+v", report)
	}

	mid, _ := newTestService(t, nil, time.Date(2024, 2, 28, 18, 0, 0, 0, time.UTC))
	if report, err := mid.MaybeReport(ctx); err != nil || report != nil {
		t.Fatalf("expected no report, got %+v, %v", report, err)
	}
}
