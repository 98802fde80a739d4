package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pulse-currency/internal/alerting"
	"pulse-currency/internal/config"
	"pulse-currency/internal/rates"
	"pulse-currency/internal/resolver"
	"pulse-currency/internal/scheduler"
	"pulse-currency/internal/stats"
)

// Service orchestrates scheduled refreshes, cache hygiene, and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	resolver  *resolver.Resolver
	notifier  alerting.Notifier
	logger    zerolog.Logger

	tracked   []string
	threshold decimal.Decimal
	channels  []string
	alertsOn  bool
	pruneDays int

	// lastAlerted suppresses repeat alerts for the same currency and date.
	lastAlerted map[string]string
}

// New constructs the refresh service.
func New(cfg *config.Config, sched *scheduler.Scheduler, res *resolver.Resolver, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	threshold := decimal.Zero
	if cfg.Alerting.Enabled && cfg.Alerting.ThresholdPct > 0 {
		threshold = decimal.NewFromFloat(cfg.Alerting.ThresholdPct)
	}

	return &Service{
		scheduler:   sched,
		resolver:    res,
		notifier:    notifier,
		logger:      logger.With().Str("component", "service").Logger(),
		tracked:     cfg.Tracking.Currencies,
		threshold:   threshold,
		channels:    cfg.Alerting.Channels,
		alertsOn:    cfg.Alerting.Enabled,
		pruneDays:   cfg.Cache.PruneAfterDays,
		lastAlerted: make(map[string]string),
	}
}

// Run begins the aligned refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick 执行单次刷新：解析今日快照、清理过期缓存、评估告警阈值。
func (s *Service) ProcessTick(ctx context.Context, bucket time.Time) error {
	snap, err := s.resolver.GetToday(ctx)
	if err != nil {
		return fmt.Errorf("resolve today: %w", err)
	}

	s.logger.Info().
		Time("as_of", snap.AsOf).
		Int("currencies", len(snap.Currencies)).
		Msg("rates refreshed")

	if deleted, err := s.resolver.PruneCache(s.pruneDays); err != nil {
		s.logger.Warn().Err(err).Msg("cache prune failed")
	} else if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("expired cache entries pruned")
	}

	s.evaluateAlerts(ctx, snap)
	return nil
}

func (s *Service) evaluateAlerts(ctx context.Context, snap *rates.Snapshot) {
	if !s.alertsOn || s.notifier == nil || s.threshold.IsZero() {
		return
	}

	dateKey := rates.DateKey(snap.AsOf)
	for _, code := range s.tracked {
		currency, ok := snap.Currency(code)
		if !ok {
			continue
		}

		_, changePct := stats.Changes(currency.Value, currency.Previous, currency.Nominal)
		if !changePct.Abs().GreaterThan(s.threshold) {
			continue
		}
		if s.lastAlerted[currency.CharCode] == dateKey {
			continue
		}

		note := alerting.Notification{
			Date:         snap.AsOf,
			CharCode:     currency.CharCode,
			Name:         currency.Name,
			Value:        currency.Value,
			Previous:     currency.Previous,
			ChangePct:    changePct,
			ThresholdPct: s.threshold,
			Direction:    classifyChange(changePct),
			Channels:     s.channels,
		}

		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("currency", currency.CharCode).Msg("failed to dispatch alert")
			continue
		}
		s.lastAlerted[currency.CharCode] = dateKey
	}
}

func classifyChange(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "up"
	case -1:
		return "down"
	default:
		return "flat"
	}
}
