package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pulse-currency/internal/alerting"
	"pulse-currency/internal/cache"
	"pulse-currency/internal/config"
	"pulse-currency/internal/fetcher"
	"pulse-currency/internal/resolver"
	"pulse-currency/internal/scheduler"
	"pulse-currency/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newStore() *cache.Store {
	return cache.NewStore(cache.Options{Dir: a.Config.Cache.Dir}, a.Logger)
}

func (a *App) newFetcher() *fetcher.Client {
	return fetcher.NewClient(fetcher.Options{
		BaseURL:        a.Config.API.BaseURL,
		Timeout:        a.Config.API.RequestTimeout,
		MaxRetries:     a.Config.API.MaxRetries,
		RetryBaseDelay: a.Config.API.RetryBaseDelay,
		UserAgent:      a.Config.API.UserAgent,
		RequiredCodes:  a.Config.Tracking.Currencies,
	}, a.Logger)
}

func (a *App) newResolver() *resolver.Resolver {
	return resolver.New(a.newStore(), a.newFetcher(), resolver.Options{
		MaxAge:       a.Config.Cache.MaxAge,
		LookbackDays: a.Config.Cache.LookbackDays,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

// Run executes the long-running refresh service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(a.Config, sched, a.newResolver(), a.newNotifier(), a.Logger)

	a.Logger.Info().Msg("starting refresh service")
	err := svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("refresh service stopped")
	return nil
}

// FetchOptions configure a one-shot rate resolution.
type FetchOptions struct {
	// Date is zero for "today".
	Date time.Time
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Currency string
	Days     int
	Window   int
}

// BackfillOptions configure the bulk backfill job.
type BackfillOptions struct {
	From    time.Time
	To      time.Time
	Workers int
	DryRun  bool
}

// ExportOptions hold parameters for exporting cached history.
type ExportOptions struct {
	Currency  string
	Days      int
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
