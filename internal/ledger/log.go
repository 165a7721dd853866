// Package ledger implements the expense log: a comma-separated file whose first
// row is the fixed header and whose other rows are records in insertion order.
//
// Every operation is one synchronous pass over the file with the file closed
// on every exit path. There is no locking; the file belongs to one process.
// DeleteMatching rewrites the file in place, so a crash during the rewrite can
// leave it truncated.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"speselog/internal/core"
	"speselog/internal/log"
)

// Log is a handle on an expense log file. Opening it does no I/O.
type Log struct {
	path string
}

// Open returns a Log for path.
func Open(path string) *Log {
	return &Log{path: path}
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

// Append writes r as a new row, creating the file and its header when needed.
// Duplicate records are allowed. The row is written in canonical form.
func (l *Log) Append(ctx context.Context, r core.Record) error {
	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %q: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log %q: %w", l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(core.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(r.Canonical().Fields()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log %q: %w", l.path, err)
	}

	slog.DebugContext(ctx, "Record appended to log", log.FieldComponent, log.ComponentLedger, log.FieldLogFile, l.path, "date", r.Date, "category", r.Category)
	return nil
}

// ReadAll returns every record after the header, in file order. A missing
// file is an empty log.
func (l *Log) ReadAll(ctx context.Context) ([]core.Record, error) {
	_, records, err := l.read()
	if errors.Is(err, fs.ErrNotExist) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Log read", log.FieldComponent, log.ComponentLedger, log.FieldLogFile, l.path, "records", len(records))
	return records, nil
}

// DeleteMatching removes every row textually equal to any of targets and
// rewrites the file with the header followed by the surviving rows in their
// original order. Matching is by value, so all copies of a duplicated record
// go together. Targets are compared in canonical form. A missing file is an
// error.
func (l *Log) DeleteMatching(ctx context.Context, targets []core.Record) (int, error) {
	header, records, err := l.read()
	if err != nil {
		return 0, err
	}
	if header == nil {
		header = core.Header
	}

	drop := make(map[core.Record]struct{}, len(targets))
	for _, t := range targets {
		drop[t.Canonical()] = struct{}{}
	}

	kept := make([]core.Record, 0, len(records))
	for _, r := range records {
		if _, ok := drop[r]; ok {
			continue
		}
		kept = append(kept, r)
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := l.rewrite(header, kept); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Records deleted from log", log.FieldComponent, log.ComponentLedger, log.FieldLogFile, l.path, "removed", removed, "remaining", len(kept))
	return removed, nil
}

// read parses the whole file. header is nil for an empty file.
func (l *Log) read() (header []string, records []core.Record, err error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open log %q: %w", l.path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err = cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, []core.Record{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %q: %w", l.path, err)
	}

	records = []core.Record{}
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %q: %w", l.path, err)
		}
		r, err := core.RecordFromFields(fields)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, nil, fmt.Errorf("%s line %d: %w", l.path, line, err)
		}
		records = append(records, r)
	}
	return header, records, nil
}

func (l *Log) rewrite(header []string, records []core.Record) error {
	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("rewrite log %q: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(r.Fields()); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush log %q: %w", l.path, err)
	}
	return nil
}
