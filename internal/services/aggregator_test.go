package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/core"
)

type stubReader struct {
	records []core.Record
	err     error
	calls   int
}

func (s *stubReader) ReadAll(context.Context) ([]core.Record, error) {
	s.calls++
	return s.records, s.err
}

var mayRecords = []core.Record{
	{Amount: "10.50", Category: "Food", Date: "2024-05-01"},
	{Amount: "5", Category: "Transport", Date: "2024-05-31"},
	{Amount: "3", Category: "Food", Date: "2024-06-01"},
}

func TestMonthlyTotal(t *testing.T) {
	tests := []struct {
		name    string
		records []core.Record
		month   core.YearMonth
		want    string
		wantErr error
	}{
		{
			name:    "sums only the requested month",
			records: mayRecords,
			month:   core.YearMonth{Year: 2024, Month: time.May},
			want:    "15.5",
		},
		{
			name:    "empty month is zero",
			records: mayRecords,
			month:   core.YearMonth{Year: 2023, Month: time.May},
			want:    "0",
		},
		{
			name: "thousands separator is not numeric",
			records: []core.Record{
				{Amount: "1,234", Category: "Food", Date: "2024-05-02"},
				{Amount: "0.75", Category: "Food", Date: "2024-05-03"},
			},
			month:   core.YearMonth{Year: 2024, Month: time.May},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name: "non numeric amount in month fails",
			records: []core.Record{
				{Amount: "abc", Category: "Food", Date: "2024-05-02"},
			},
			month:   core.YearMonth{Year: 2024, Month: time.May},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name: "non numeric amount outside month is ignored",
			records: []core.Record{
				{Amount: "abc", Category: "Food", Date: "2024-04-02"},
				{Amount: "2", Category: "Food", Date: "2024-05-02"},
			},
			month: core.YearMonth{Year: 2024, Month: time.May},
			want:  "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthlyTotal(tt.records, tt.month)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
}

func TestSummarizeBreakdown(t *testing.T) {
	records := append([]core.Record{{Amount: "2.50", Category: "Transport", Date: "2024-05-10"}}, mayRecords...)
	report, err := Summarize(records, core.YearMonth{Year: 2024, Month: time.May})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Count != 3 {
		t.Fatalf("expected 3 records summed, got %d", report.Count)
	}
	if len(report.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %+v", report.ByCategory)
	}
	if report.ByCategory[0].Name != "Food" || !report.ByCategory[0].Amount.Equal(decimal.RequireFromString("10.50")) {
		t.Fatalf("unexpected first category %+v", report.ByCategory[0])
	}
	if report.ByCategory[1].Name != "Transport" || !report.ByCategory[1].Amount.Equal(decimal.RequireFromString("7.50")) {
		t.Fatalf("unexpected second category %+v", report.ByCategory[1])
	}
}

func TestMaybeReportMonthlyTotal(t *testing.T) {
	reader := &stubReader{records: mayRecords}
	agg := NewAggregator(reader)
	ctx := context.Background()

	report, err := agg.MaybeReportMonthlyTotal(ctx, time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC))
	if err != nil || report != nil {
		t.Fatalf("expected no report before month end, got %+v, %v", report, err)
	}
	if reader.calls != 0 {
		t.Fatalf("log should not be read before month end")
	}

	report, err = agg.MaybeReportMonthlyTotal(ctx, time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil {
		t.Fatalf("expected a report on month end")
	}
	if report.Month.String() != "2024-05" || !report.Total.Equal(decimal.RequireFromString("15.50")) {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestAggregatorPropagatesReadError(t *testing.T) {
	agg := NewAggregator(&stubReader{err: errors.New("disk gone")})
	if _, err := agg.MonthlyTotal(context.Background(), core.YearMonth{Year: 2024, Month: time.May}); err == nil {
		t.Fatalf("expected error")
	}
}
