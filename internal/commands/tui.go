package commands

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"speselog/internal/app"
	"speselog/internal/tui"
)

type tuiCmd struct {
	env *Env
}

func (*tuiCmd) Name() string     { return "tui" }
func (*tuiCmd) Synopsis() string { return "open the interactive expense form" }
func (*tuiCmd) Usage() string {
	return `tui

  Opens a terminal form to enter expenses, browse and delete them. The
  month's total is shown when a record is saved on the last day of a month.
`
}

func (*tuiCmd) SetFlags(*flag.FlagSet) {}

func (c *tuiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := tui.Run(ctx, app.NewController(c.env.Service), c.env.Currency); err != nil {
		c.env.failf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
