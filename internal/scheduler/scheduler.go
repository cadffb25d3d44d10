package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"SolarBudget/internal/budget"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/model"
	"SolarBudget/internal/notifier"
)

// Sender delivers a report. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Schedule holds the cron specs (seconds field first).
type Schedule struct {
	Forecast string
	Prices   string
	Report   string
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Budget   *budget.Service
	Notifier Sender
	Currency string
	Ctx      context.Context

	log *logrus.Entry
}

// NewScheduler creates a new Scheduler. tn may be nil when Telegram is disabled.
func NewScheduler(ctx context.Context, svc *budget.Service, tn Sender, currency string) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Budget:   svc,
		Notifier: tn,
		Currency: currency,
		Ctx:      ctx,
		log:      logger.Component("scheduler"),
	}
}

// RegisterAll registers the cache warm-up jobs and, with a notifier, the daily report.
func (s *Scheduler) RegisterAll(sched Schedule) error {
	if _, err := s.Cron.AddFunc(sched.Forecast, s.warmForecast); err != nil {
		return fmt.Errorf("register forecast task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sched.Prices, s.warmPrices); err != nil {
		return fmt.Errorf("register prices task: %w", err)
	}
	if s.Notifier != nil {
		if _, err := s.Cron.AddFunc(sched.Report, s.dailyReport); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.WithField("jobs", len(s.Cron.Entries())).Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunWarmupNow fills both caches immediately (RUN_ON_START).
func (s *Scheduler) RunWarmupNow() {
	s.warmForecast()
	s.warmPrices()
}

func (s *Scheduler) warmForecast() {
	f, err := s.Budget.Forecast(s.Ctx)
	if err != nil {
		s.log.WithError(err).Error("forecast warm-up")
		return
	}
	s.log.WithField("points", len(f)).Info("forecast warm-up done")
}

func (s *Scheduler) warmPrices() {
	p, err := s.Budget.Prices(s.Ctx)
	if err != nil {
		s.log.WithError(err).Error("prices warm-up")
		return
	}
	s.log.WithField("points", len(p)).Info("prices warm-up done")
}

func (s *Scheduler) dailyReport() {
	s.log.Info("running daily report")
	sum, err := s.Budget.Summary(s.Ctx)
	if err != nil {
		s.log.WithError(err).Error("daily report")
		s.trySend(notifier.FormatUnavailable(err))
		return
	}
	s.trySend(notifier.FormatDailyReport(&sum, s.Currency))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/today", "/tomorrow", "/price", "/report":
	default:
		return "Available commands:\n• /today\n• /tomorrow\n• /price\n• /report"
	}

	sum, err := s.Budget.Summary(ctx)
	if err != nil {
		return notifier.FormatUnavailable(err)
	}
	loc := sum.GeneratedAt.Location()
	switch cmd {
	case "/today":
		return notifier.FormatDay(&sum, sum.Today, model.DateOf(sum.GeneratedAt, loc), s.Currency)
	case "/tomorrow":
		return notifier.FormatDay(&sum, sum.Tomorrow, model.DateOf(sum.GeneratedAt.AddDate(0, 0, 1), loc), s.Currency)
	case "/price":
		return notifier.FormatPrice(&sum, s.Currency)
	default:
		return notifier.FormatDailyReport(&sum, s.Currency)
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
