// Package storage keeps the month-end report history and the event journal in
// SQLite. The expense log itself is never stored here.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/core"
	"speselog/internal/log"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

// JournalEntry is one event received by the worker.
type JournalEntry struct {
	ID         int64
	EventType  string
	Payload    []byte
	ReceivedAt time.Time
}

type categoryRow struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// HasReport reports whether the month already has a stored report.
func (r *SQLiteRepository) HasReport(ctx context.Context, ym core.YearMonth) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM monthly_reports WHERE year_month = ?`, ym.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check report %s: %w", ym, err)
	}
	return n > 0, nil
}

// SaveReport stores a report unless its month already has one. It returns
// whether a row was inserted.
func (r *SQLiteRepository) SaveReport(ctx context.Context, report core.MonthlyReport, at time.Time) (bool, error) {
	rows := make([]categoryRow, len(report.ByCategory))
	for i, c := range report.ByCategory {
		rows[i] = categoryRow{Name: c.Name, Amount: c.Amount.String()}
	}
	byCategory, err := json.Marshal(rows)
	if err != nil {
		return false, fmt.Errorf("marshal category breakdown: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO monthly_reports (year_month, total, record_count, by_category, reported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		report.Month.String(), report.Total.String(), report.Count, string(byCategory), at.UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("insert report %s: %w", report.Month, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "Monthly report stored", log.FieldComponent, log.ComponentStorage, log.FieldYearMonth, report.Month.String(), "total", report.Total.String())
	}
	return n > 0, nil
}

// ListReports returns stored reports, most recent month first. limit <= 0 means all.
func (r *SQLiteRepository) ListReports(ctx context.Context, limit int) ([]core.StoredReport, error) {
	query := `SELECT year_month, total, record_count, by_category, reported_at
		FROM monthly_reports ORDER BY year_month DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []core.StoredReport
	for rows.Next() {
		var (
			ym, total, byCategory, reportedAt string
			count                             int
		)
		if err := rows.Scan(&ym, &total, &count, &byCategory, &reportedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report, err := decodeReport(ym, total, count, byCategory, reportedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

func decodeReport(ym, total string, count int, byCategory, reportedAt string) (core.StoredReport, error) {
	month, err := core.ParseYearMonth(ym)
	if err != nil {
		return core.StoredReport{}, err
	}
	sum, err := decimal.NewFromString(total)
	if err != nil {
		return core.StoredReport{}, fmt.Errorf("parse total of %s: %w", ym, err)
	}
	at, err := time.Parse(timeLayout, reportedAt)
	if err != nil {
		return core.StoredReport{}, fmt.Errorf("parse reported_at of %s: %w", ym, err)
	}

	var rows []categoryRow
	if err := json.Unmarshal([]byte(byCategory), &rows); err != nil {
		return core.StoredReport{}, fmt.Errorf("parse category breakdown of %s: %w", ym, err)
	}
	report := core.StoredReport{
		MonthlyReport: core.MonthlyReport{Month: month, Total: sum, Count: count},
		ReportedAt:    at,
	}
	for _, row := range rows {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return core.StoredReport{}, fmt.Errorf("parse amount of %s/%s: %w", ym, row.Name, err)
		}
		report.ByCategory = append(report.ByCategory, core.CategoryAmount{Name: row.Name, Amount: amount})
	}
	return report, nil
}

// RecordEvent appends an event to the journal.
func (r *SQLiteRepository) RecordEvent(ctx context.Context, eventType string, payload []byte, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (event_type, payload, received_at) VALUES (?, ?, ?)`,
		eventType, string(payload), at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", eventType, err)
	}
	return nil
}

// ListEvents returns the most recent journal entries first.
func (r *SQLiteRepository) ListEvents(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_type, payload, received_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e                   JournalEntry
			payload, receivedAt string
		)
		if err := rows.Scan(&e.ID, &e.EventType, &payload, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = []byte(payload)
		if e.ReceivedAt, err = time.Parse(timeLayout, receivedAt); err != nil {
			return nil, fmt.Errorf("parse received_at of event %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
