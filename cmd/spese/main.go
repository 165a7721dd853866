package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"speselog/internal/cache"
	"speselog/internal/cli"
	apphttp "speselog/internal/http"
	"speselog/internal/ledger"
	"speselog/internal/log"
	"speselog/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	publisher, closePublisher := cli.ConnectPublisher(logger, cfg)
	defer closePublisher()

	totals := cli.NewTotalsCache(cfg)
	svc := services.NewExpenseService(ledger.Open(cfg.ExpensesFile), publisher, totals, nil)
	scheduler := services.NewMonthEndScheduler(svc.Aggregator(), repo, publisher, nil,
		services.MonthEndSchedulerConfig{CheckInterval: cfg.ReportCheckInterval})

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:  svc,
		History:  repo,
		Logger:   logger,
		Currency: cfg.Currency,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting speselog server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldLogFile, cfg.ExpensesFile)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServeContext(gctx, 30*time.Second) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return cache.NewJanitor(totals).Run(gctx, cfg.TotalsCacheTTL) })
	g.Go(func() error { return srv.Limiter().Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
