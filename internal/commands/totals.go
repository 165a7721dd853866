package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"speselog/internal/core"
	"speselog/internal/render"
)

type totalCmd struct {
	env   *Env
	month string
}

func (*totalCmd) Name() string     { return "total" }
func (*totalCmd) Synopsis() string { return "display the total of a month" }
func (*totalCmd) Usage() string {
	return `total [-month <YYYY-MM>]

  Sums the amounts of every record dated in the month, current month by default.
`
}

func (c *totalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Month as YYYY-MM. Defaults to the current month.")
}

func (c *totalCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	today, err := core.ParseDate(c.env.Service.Today())
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	ym := core.YearMonthOf(today)
	if c.month != "" {
		if ym, err = core.ParseYearMonth(c.month); err != nil {
			c.env.failf("%v", err)
			return subcommands.ExitUsageError
		}
	}

	report, err := c.env.Service.MonthlyReport(ctx, ym)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	return c.env.print(render.ReportMarkdown(report, c.env.Currency))
}

type reportCmd struct {
	env *Env
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "announce the month end total if due" }
func (*reportCmd) Usage() string {
	return `report

  On the last day of a month, computes the month's total, records it in the
  report history and publishes it. Each month is announced once; later runs
  print nothing new.
`
}

func (*reportCmd) SetFlags(*flag.FlagSet) {}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	report, err := c.env.Scheduler.Check(ctx)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	if report == nil {
		fmt.Fprintln(c.env.Stdout, "No month end report due.")
		return subcommands.ExitSuccess
	}
	return c.env.print(render.ReportMarkdown(*report, c.env.Currency))
}

type historyCmd struct {
	env   *Env
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display announced month end reports" }
func (*historyCmd) Usage() string {
	return `history [-n <count>]

  Displays the month end reports already announced, most recent first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 12, "Number of months to show, 0 for all")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	reports, err := c.env.History.ListReports(ctx, c.limit)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	return c.env.print(render.HistoryMarkdown(reports, c.env.Currency))
}

type eventsCmd struct {
	env   *Env
	limit int
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "display events received by the worker" }
func (*eventsCmd) Usage() string {
	return `events [-n <count>]

  Displays the event journal kept by speselog-worker, newest first.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Number of events to show, 0 for all")
}

func (c *eventsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.env.Events == nil {
		c.env.failf("no event journal configured")
		return subcommands.ExitFailure
	}
	entries, err := c.env.Events.ListEvents(ctx, c.limit)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	return c.env.print(render.EventsMarkdown(entries))
}
