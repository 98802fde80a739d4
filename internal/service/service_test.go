package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pulse-currency/internal/alerting"
	"pulse-currency/internal/cache"
	"pulse-currency/internal/config"
	"pulse-currency/internal/rates"
	"pulse-currency/internal/resolver"
)

type recordingNotifier struct {
	notes []alerting.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	r.notes = append(r.notes, note)
	return nil
}

type staticFetcher struct {
	snap *rates.Snapshot
}

func (s *staticFetcher) Fetch(ctx context.Context, date time.Time) (*rates.Snapshot, error) {
	return s.snap, nil
}

func snapshotWithMove(asOf time.Time, changePct float64) *rates.Snapshot {
	prev := decimal.NewFromFloat(100)
	value := prev.Add(prev.Mul(decimal.NewFromFloat(changePct)).Div(decimal.NewFromInt(100)))
	return &rates.Snapshot{
		AsOf:       asOf,
		PreviousAs: asOf.AddDate(0, 0, -1),
		Currencies: map[string]rates.CurrencyRate{
			"USD": {ID: "R01235", NumCode: 840, CharCode: "USD", Nominal: 1, Name: "US Dollar",
				Value: value, Previous: prev},
			"EUR": {ID: "R01239", NumCode: 978, CharCode: "EUR", Nominal: 1, Name: "Euro",
				Value: decimal.NewFromFloat(100), Previous: decimal.NewFromFloat(100)},
		},
		FetchedAt: asOf,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Cache:    config.CacheConfig{LookbackDays: 7, PruneAfterDays: 30},
		Tracking: config.TrackingConfig{Currencies: []string{"USD", "EUR"}},
		Alerting: config.AlertingConfig{
			Enabled:      true,
			ThresholdPct: 1.0,
			Channels:     []string{"telegram"},
		},
	}
}

func newServiceUnderTest(t *testing.T, snap *rates.Snapshot, notifier alerting.Notifier) *Service {
	t.Helper()
	now := snap.AsOf
	clock := func() time.Time { return now }
	store := cache.NewStore(cache.Options{Dir: t.TempDir(), Now: clock}, zerolog.Nop())
	res := resolver.New(store, &staticFetcher{snap: snap}, resolver.Options{
		LookbackDays: 7,
		Now:          clock,
	}, zerolog.Nop())
	return New(testConfig(), nil, res, notifier, zerolog.Nop())
}

func TestProcessTickAlertsOnThresholdBreach(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)
	notifier := &recordingNotifier{}
	svc := newServiceUnderTest(t, snapshotWithMove(asOf, 2.5), notifier)

	if err := svc.ProcessTick(context.Background(), asOf); err != nil {
		t.Fatalf("tick should succeed: %v", err)
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("alerts = %d, want 1 (only USD moved past the threshold)", len(notifier.notes))
	}
	note := notifier.notes[0]
	if note.CharCode != "USD" || note.Direction != "up" {
		t.Fatalf("unexpected alert: %#v", note)
	}
}

func TestProcessTickSuppressesRepeatAlerts(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)
	notifier := &recordingNotifier{}
	svc := newServiceUnderTest(t, snapshotWithMove(asOf, 2.5), notifier)

	for i := 0; i < 3; i++ {
		if err := svc.ProcessTick(context.Background(), asOf); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	if len(notifier.notes) != 1 {
		t.Fatalf("alerts = %d, want 1 despite repeated ticks on the same date", len(notifier.notes))
	}
}

func TestProcessTickQuietBelowThreshold(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)
	notifier := &recordingNotifier{}
	svc := newServiceUnderTest(t, snapshotWithMove(asOf, 0.4), notifier)

	if err := svc.ProcessTick(context.Background(), asOf); err != nil {
		t.Fatalf("tick should succeed: %v", err)
	}
	if len(notifier.notes) != 0 {
		t.Fatalf("alerts = %d, want 0 below threshold", len(notifier.notes))
	}
}
