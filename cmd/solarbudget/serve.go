package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"SolarBudget/internal/logger"
	"SolarBudget/internal/notifier"
	"SolarBudget/internal/scheduler"
	"SolarBudget/internal/server"
	"SolarBudget/internal/store"
)

type serveCmd struct {
	config     *string
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API, cache warm-up jobs and Telegram bot" }
func (*serveCmd) Usage() string {
	return `solarbudget serve [-run-on-start]

  Serves /api/summary, /healthz and /metrics, refreshes the forecast and price
  caches on schedule and, when configured, answers Telegram commands.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "warm both caches immediately")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(*c.config, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	log := logger.Component("main")
	log.Info("SolarBudget starting...")

	st, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.WithError(err).Error("open snapshot store")
		return subcommands.ExitFailure
	}
	defer st.Close()

	svc, err := newService(cfg, st)
	if err != nil {
		log.WithError(err).Error("init service")
		return subcommands.ExitFailure
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sender scheduler.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, svc, sender, cfg.Currency)
	if err := sched.RegisterAll(scheduler.Schedule{
		Forecast: cfg.Schedule.ForecastCron,
		Prices:   cfg.Schedule.PricesCron,
		Report:   cfg.Schedule.ReportCron,
	}); err != nil {
		log.WithError(err).Error("register cron tasks")
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("Telegram polling started")
	}

	if c.runOnStart {
		log.Info("run-on-start enabled, warming caches now")
		go sched.RunWarmupNow()
	}

	srv := server.NewServer(cfg.HTTP.Addr, svc, st)
	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Error("start http server")
		return subcommands.ExitFailure
	}

	log.Info("SolarBudget is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	log.Info("SolarBudget stopped")
	return subcommands.ExitSuccess
}
