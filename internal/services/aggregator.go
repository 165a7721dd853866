// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/core"
	"speselog/internal/log"
)

// RecordReader returns every record in the log, in file order.
type RecordReader interface {
	ReadAll(ctx context.Context) ([]core.Record, error)
}

// IsMonthEnd reports whether date is the last day of its month.
func IsMonthEnd(date time.Time) bool {
	return core.IsMonthEnd(date)
}

// MonthlyTotal sums the amounts of the records dated in ym.
func MonthlyTotal(records []core.Record, ym core.YearMonth) (decimal.Decimal, error) {
	report, err := Summarize(records, ym)
	if err != nil {
		return decimal.Zero, err
	}
	return report.Total, nil
}

// Summarize builds the month report: total, number of records summed and the
// per-category breakdown sorted by descending amount, then by name.
//
// Records of other months are never parsed, so a bad amount outside ym does
// not fail the total.
func Summarize(records []core.Record, ym core.YearMonth) (core.MonthlyReport, error) {
	report := core.MonthlyReport{Month: ym, Total: decimal.Zero}
	byCategory := make(map[string]decimal.Decimal)

	for _, r := range records {
		if !ym.Contains(r.Date) {
			continue
		}
		amount, err := core.ParseAmount(r.Amount)
		if err != nil {
			return core.MonthlyReport{}, fmt.Errorf("record dated %s: %w", r.Date, err)
		}
		report.Total = report.Total.Add(amount)
		report.Count++
		byCategory[r.Category] = byCategory[r.Category].Add(amount)
	}

	for name, amount := range byCategory {
		report.ByCategory = append(report.ByCategory, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		a, b := report.ByCategory[i], report.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	return report, nil
}

// Aggregator computes totals over the whole log.
type Aggregator struct {
	records RecordReader
}

func NewAggregator(records RecordReader) *Aggregator {
	return &Aggregator{records: records}
}

// MonthlyTotal reads the log and sums the month.
func (a *Aggregator) MonthlyTotal(ctx context.Context, ym core.YearMonth) (decimal.Decimal, error) {
	report, err := a.Report(ctx, ym)
	if err != nil {
		return decimal.Zero, err
	}
	return report.Total, nil
}

// Report reads the log and summarizes the month.
func (a *Aggregator) Report(ctx context.Context, ym core.YearMonth) (core.MonthlyReport, error) {
	records, err := a.records.ReadAll(ctx)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("read log: %w", err)
	}
	report, err := Summarize(records, ym)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("total %s: %w", ym, err)
	}
	return report, nil
}

// MaybeReportMonthlyTotal returns the report for today's month when today is
// the last day of the month, and nil otherwise.
func (a *Aggregator) MaybeReportMonthlyTotal(ctx context.Context, today time.Time) (*core.MonthlyReport, error) {
	if !IsMonthEnd(today) {
		return nil, nil
	}

	ym := core.YearMonthOf(today)
	report, err := a.Report(ctx, ym)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Month end total computed",
		log.FieldComponent, log.ComponentAggregate,
		log.FieldYearMonth, ym.String(),
		"total", report.Total.String(),
		log.FieldCount, report.Count)

	return &report, nil
}
