package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/core"
	"speselog/internal/storage"
)

func TestRecordsMarkdown(t *testing.T) {
	out := RecordsMarkdown([]core.Record{
		{Amount: "12.00", Category: "Food", Description: "lunch", Date: "2024-03-15"},
		{Amount: "3", Category: "Transport", Date: "2024-03-16"},
	})
	for _, want := range []string{"# Expenses", "Amount", "lunch", "2024-03-16", "Transport"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRecordsMarkdownEmpty(t *testing.T) {
	if out := RecordsMarkdown(nil); !strings.Contains(out, "No records.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestReportMarkdown(t *testing.T) {
	out := ReportMarkdown(core.MonthlyReport{
		Month: core.YearMonth{Year: 2024, Month: time.May},
		Total: decimal.RequireFromString("15.50"),
		Count: 2,
		ByCategory: []core.CategoryAmount{
			{Name: "Food", Amount: decimal.RequireFromString("10.50")},
		},
	}, "EUR")
	for _, want := range []string{"2024-05", "15.50", "2 record(s)", "Food", "10.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryMarkdown(t *testing.T) {
	out := HistoryMarkdown([]core.StoredReport{{
		MonthlyReport: core.MonthlyReport{Month: core.YearMonth{Year: 2024, Month: time.April}, Total: decimal.NewFromInt(9), Count: 1},
		ReportedAt:    time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
	}}, "EUR")
	if !strings.Contains(out, "2024-04") || !strings.Contains(out, "9.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRawPrinter(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, true)
	if err != nil {
		t.Fatalf("new printer: %v", err)
	}
	if err := p.Print("# Title\n"); err != nil {
		t.Fatalf("print: %v", err)
	}
	if buf.String() != "# Title\n" {
		t.Fatalf("raw printer changed output: %q", buf.String())
	}
}

func TestEventsMarkdown(t *testing.T) {
	if out := EventsMarkdown(nil); !strings.Contains(out, "No events received.") {
		t.Fatalf("unexpected empty output:\n%s", out)
	}

	out := EventsMarkdown([]storage.JournalEntry{{
		ID:         7,
		EventType:  "record.appended",
		Payload:    []byte(`{"type":"record.appended"}`),
		ReceivedAt: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC),
	}})
	if !strings.Contains(out, "record.appended") || !strings.Contains(out, "Received at") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
