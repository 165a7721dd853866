package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"github.com/google/subcommands"

	"speselog/internal/app"
	"speselog/internal/core"
	"speselog/internal/render"
)

type addCmd struct {
	env *Env

	amount      string
	category    string
	other       string
	description string
	date        string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "append an expense to the log" }
func (*addCmd) Usage() string {
	return `add -a <amount> -c <category> [-other <text>] [-m <description>] [-d <date>]

  Appends a record to the expense log. The date defaults to today.
  With -c Other a replacement category must be given with -other.
  On the last day of a month the month's total is printed.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "a", "", "Amount, e.g. 12.50 (required)")
	f.StringVar(&c.category, "c", "", "Category (required)")
	f.StringVar(&c.other, "other", "", "Replacement category when -c is Other")
	f.StringVar(&c.description, "m", "", "Optional description")
	f.StringVar(&c.date, "d", "", "Date as YYYY-MM-DD. Defaults to today.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	form := app.NewForm(c.env.Service.Today())
	form.Amount = c.amount
	form.Category = c.category
	form.CategoryOther = c.other
	form.Description = c.description
	if c.date != "" {
		form.Date = c.date
	}

	r, err := form.Record()
	if err != nil {
		c.env.failf("%v", err)
		if errors.Is(err, core.ErrCategoryReplacementRequired) {
			fmt.Fprintln(c.env.Stderr, "Use -other to name the category.")
		}
		return subcommands.ExitUsageError
	}

	if err := c.env.Service.Add(ctx, r); err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.env.Stdout, "Added %s %s on %s\n", r.Amount, r.Category, r.Date)

	report, err := c.env.Service.MaybeReport(ctx)
	if err != nil {
		c.env.failf("computing month end total: %v", err)
		return subcommands.ExitFailure
	}
	if report != nil {
		return c.env.print(render.ReportMarkdown(*report, c.env.Currency))
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	env   *Env
	month string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "display the expense log" }
func (*listCmd) Usage() string {
	return `list [-month <YYYY-MM>]

  Displays every record in file order. The row numbers are the ones the
  delete command takes.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Only show records of this month (YYYY-MM)")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	records, err := c.env.Service.List(ctx)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}

	if c.month != "" {
		ym, err := core.ParseYearMonth(c.month)
		if err != nil {
			c.env.failf("%v", err)
			return subcommands.ExitUsageError
		}
		filtered := records[:0:0]
		for _, r := range records {
			if ym.Contains(r.Date) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	return c.env.print(render.RecordsMarkdown(records))
}

type deleteCmd struct {
	env *Env
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete records by row number" }
func (*deleteCmd) Usage() string {
	return `delete <row> [<row>...]

  Deletes the records at the given rows, as numbered by list. Every record
  identical to a selected one is removed too.
`
}

func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		c.env.failf("at least one row number is required")
		return subcommands.ExitUsageError
	}

	records, err := c.env.Service.List(ctx)
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}

	state := &app.State{Records: records}
	for _, arg := range f.Args() {
		row, err := strconv.Atoi(arg)
		if err != nil || row < 1 || row > len(records) {
			c.env.failf("invalid row %q: want a number between 1 and %d", arg, len(records))
			return subcommands.ExitUsageError
		}
		if !state.Selected[row-1] {
			state.ToggleSelection(row - 1)
		}
	}

	removed, err := c.env.Service.Delete(ctx, state.SelectedRecords())
	if err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.env.Stdout, "Deleted %d record(s)\n", removed)
	return subcommands.ExitSuccess
}
