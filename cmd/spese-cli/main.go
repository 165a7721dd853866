package main

import (
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"speselog/internal/cli"
	"speselog/internal/commands"
	"speselog/internal/ledger"
	"speselog/internal/log"
	"speselog/internal/render"
	"speselog/internal/services"
)

func main() {
	raw := flag.Bool("raw", false, "print plain markdown instead of styled terminal output")
	file := flag.String("file", "", "expense log to use instead of EXPENSES_FILE")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")

	cli.LoadEnvFile()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLogger(level, log.ComponentCLI)

	env := &commands.Env{Stdout: os.Stdout, Stderr: os.Stderr}
	commands.Register(commander, env)
	flag.Parse()

	cfg := cli.LoadAndValidateConfig(logger)
	if *file != "" {
		cfg.ExpensesFile = *file
	}

	printer, err := render.NewPrinter(os.Stdout, *raw)
	if err != nil {
		logger.Error("Failed to set up terminal output", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	publisher, closePublisher := cli.ConnectPublisher(logger, cfg)

	svc := services.NewExpenseService(ledger.Open(cfg.ExpensesFile), publisher, cli.NewTotalsCache(cfg), nil)
	env.Service = svc
	env.Scheduler = services.NewMonthEndScheduler(svc.Aggregator(), repo, publisher, nil, services.DefaultMonthEndSchedulerConfig())
	env.History = repo
	env.Events = repo
	env.Printer = printer
	env.Currency = cfg.Currency

	ctx, stop := cli.SignalContext()
	status := commander.Execute(ctx)

	stop()
	closePublisher()
	repo.Close()
	os.Exit(int(status))
}
