// Package commands implements the speselog command line.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"speselog/internal/core"
	"speselog/internal/render"
	"speselog/internal/services"
	"speselog/internal/storage"
)

// HistoryLister lists announced month-end reports.
type HistoryLister interface {
	ListReports(ctx context.Context, limit int) ([]core.StoredReport, error)
}

// EventLister lists the events journaled by the worker.
type EventLister interface {
	ListEvents(ctx context.Context, limit int) ([]storage.JournalEntry, error)
}

// Env is what every command works with.
type Env struct {
	Service   *services.ExpenseService
	Scheduler *services.MonthEndScheduler
	History   HistoryLister
	Events    EventLister
	Printer   *render.Printer
	Currency  string
	Stdout    io.Writer
	Stderr    io.Writer
}

// Register the subcommands.
func Register(c *subcommands.Commander, env *Env) {
	c.Register(&addCmd{env: env}, "records")
	c.Register(&listCmd{env: env}, "records")
	c.Register(&deleteCmd{env: env}, "records")

	c.Register(&totalCmd{env: env}, "totals")
	c.Register(&reportCmd{env: env}, "totals")
	c.Register(&historyCmd{env: env}, "totals")
	c.Register(&eventsCmd{env: env}, "totals")

	c.Register(&tuiCmd{env: env}, "")
}

func (e *Env) failf(format string, args ...any) {
	fmt.Fprintf(e.Stderr, "Error: "+format+"\n", args...)
}

func (e *Env) print(markdown string) subcommands.ExitStatus {
	if err := e.Printer.Print(markdown); err != nil {
		e.failf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
