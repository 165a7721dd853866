// Package render turns records and reports into markdown documents and prints
// them on a terminal.
package render

import (
	"bytes"
	"fmt"
	"strconv"

	md "github.com/nao1215/markdown"

	"speselog/internal/core"
	"speselog/internal/storage"
)

// RecordsMarkdown renders the record list. The first column is the row index
// used by the delete command.
func RecordsMarkdown(records []core.Record) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Expenses")
	if len(records) == 0 {
		doc.PlainText("No records.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
		},
		Header: append([]string{"#"}, core.Header...),
		Rows:   [][]string{},
	}
	for i, r := range records {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(i + 1),
			r.Amount,
			r.Category,
			r.Description,
			r.Date,
		})
	}
	doc.Table(table)

	return doc.String()
}

// ReportMarkdown renders a monthly report with its category breakdown.
func ReportMarkdown(report core.MonthlyReport, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Total for %s", report.Month))
	doc.PlainText(fmt.Sprintf("%s over %d record(s)", core.FormatMoney(report.Total, currency), report.Count))

	if len(report.ByCategory) > 0 {
		doc.H2("By category")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Category", "Amount"},
			Rows:      [][]string{},
		}
		for _, c := range report.ByCategory {
			table.Rows = append(table.Rows, []string{c.Name, core.FormatMoney(c.Amount, currency)})
		}
		doc.Table(table)
	}

	return doc.String()
}

// HistoryMarkdown renders the announced month-end reports.
func HistoryMarkdown(reports []core.StoredReport, currency string) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Month end reports")
	if len(reports) == 0 {
		doc.PlainText("No reports yet.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignLeft},
		Header:    []string{"Month", "Total", "Records", "Reported at"},
		Rows:      [][]string{},
	}
	for _, r := range reports {
		table.Rows = append(table.Rows, []string{
			r.Month.String(),
			core.FormatMoney(r.Total, currency),
			strconv.Itoa(r.Count),
			r.ReportedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	doc.Table(table)

	return doc.String()
}

// EventsMarkdown renders the worker's event journal, newest first.
func EventsMarkdown(entries []storage.JournalEntry) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Event journal")
	if len(entries) == 0 {
		doc.PlainText("No events received.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignRight, md.AlignLeft, md.AlignLeft, md.AlignRight},
		Header:    []string{"#", "Type", "Received at", "Bytes"},
		Rows:      [][]string{},
	}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.EventType,
			e.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(len(e.Payload)),
		})
	}
	doc.Table(table)

	return doc.String()
}
