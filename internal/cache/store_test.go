package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pulse-currency/internal/rates"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testSnapshot(asOf, fetchedAt time.Time) *rates.Snapshot {
	return &rates.Snapshot{
		AsOf:       asOf,
		PreviousAs: asOf.AddDate(0, 0, -1),
		Currencies: map[string]rates.CurrencyRate{
			"USD": {ID: "R01235", NumCode: 840, CharCode: "USD", Nominal: 1, Name: "US Dollar",
				Value: decimal.NewFromFloat(91.5), Previous: decimal.NewFromFloat(90.8)},
		},
		FetchedAt: fetchedAt,
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	snap := testSnapshot(now, now)
	if err := store.Write(now, snap); err != nil {
		t.Fatalf("write should succeed: %v", err)
	}

	got, err := store.Read(now, 0)
	if err != nil {
		t.Fatalf("read should succeed: %v", err)
	}
	if !got.AsOf.Equal(snap.AsOf) {
		t.Fatalf("as-of = %s, want %s", got.AsOf, snap.AsOf)
	}
	usd, ok := got.Currency("USD")
	if !ok || !usd.Value.Equal(decimal.NewFromFloat(91.5)) {
		t.Fatalf("unexpected USD rate after roundtrip: %#v", usd)
	}
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	store := NewStore(Options{Dir: t.TempDir()}, noopLogger())
	if _, err := store.Read(time.Now(), 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: dir, Now: fixedClock(now)}, noopLogger())

	path := filepath.Join(dir, "rates_20240301.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	if _, err := store.Read(now, 0); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestReadStale(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	// Fetched 13 hours ago, max age 12h.
	snap := testSnapshot(now.AddDate(0, 0, -1), now.Add(-13*time.Hour))
	if err := store.Write(now, snap); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Read(now, 12*time.Hour)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if got == nil {
		t.Fatal("stale reads should still carry the snapshot")
	}

	if _, err := store.Read(now, 24*time.Hour); err != nil {
		t.Fatalf("within max age the read should be fresh: %v", err)
	}
}

func TestWriteCoercesFutureDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	store := NewStore(Options{Dir: dir, Now: fixedClock(now)}, noopLogger())

	future := now.AddDate(0, 0, 2)
	if err := store.Write(future, testSnapshot(future, now)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "rates_20240303.json")); !os.IsNotExist(err) {
		t.Fatal("future-dated cache file must never exist")
	}
	if _, err := store.Read(now, 0); err != nil {
		t.Fatalf("coerced entry should be readable under today: %v", err)
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	first := testSnapshot(now, now.Add(-time.Hour))
	if err := store.Write(now, first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := testSnapshot(now, now)
	second.Currencies["USD"] = rates.CurrencyRate{
		ID: "R01235", NumCode: 840, CharCode: "USD", Nominal: 1, Name: "US Dollar",
		Value: decimal.NewFromFloat(92.0), Previous: decimal.NewFromFloat(91.5),
	}
	if err := store.Write(now, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := store.Read(now, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	usd, _ := got.Currency("USD")
	if !usd.Value.Equal(decimal.NewFromFloat(92.0)) {
		t.Fatal("last write should win")
	}
}

func TestFindLatestBeforeOrOn(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	twoBack := now.AddDate(0, 0, -2)
	if err := store.Write(twoBack, testSnapshot(twoBack, now)); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.FindLatestBeforeOrOn(now, 7)
	if err != nil {
		t.Fatalf("lookback should hit the 2-day-old entry: %v", err)
	}
	if !rates.SameDate(got.AsOf, twoBack) {
		t.Fatalf("lookback returned %s, want %s", got.AsOf, twoBack)
	}
}

func TestFindLatestRespectsLookbackBound(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	// Entry 8 days back is outside the 7-day window.
	old := now.AddDate(0, 0, -8)
	if err := store.Write(old, testSnapshot(old, now)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.FindLatestBeforeOrOn(now, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry beyond the lookback window must not be returned, got %v", err)
	}
}

func TestFindLatestSkipsCorruptEntries(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	dir := t.TempDir()
	store := NewStore(Options{Dir: dir, Now: fixedClock(now)}, noopLogger())

	if err := os.WriteFile(filepath.Join(dir, "rates_20240310.json"), []byte("broken"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	good := now.AddDate(0, 0, -1)
	if err := store.Write(good, testSnapshot(good, now)); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.FindLatestBeforeOrOn(now, 7)
	if err != nil {
		t.Fatalf("corrupt entry should be skipped: %v", err)
	}
	if !rates.SameDate(got.AsOf, good) {
		t.Fatalf("expected the day-old entry, got %s", got.AsOf)
	}
}

func TestPrune(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	for _, back := range []int{0, 5, 31, 40} {
		d := now.AddDate(0, 0, -back)
		if err := store.Write(d, testSnapshot(d, now)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	deleted, err := store.Prune(30)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	stats, err := store.CacheStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 2 {
		t.Fatalf("remaining = %d, want 2", stats.Count)
	}
}

func TestCacheStats(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	store := NewStore(Options{Dir: t.TempDir(), Now: fixedClock(now)}, noopLogger())

	empty, err := store.CacheStats()
	if err != nil || empty.Count != 0 {
		t.Fatalf("missing dir should report empty stats, got %#v err %v", empty, err)
	}

	for _, back := range []int{0, 3} {
		d := now.AddDate(0, 0, -back)
		if err := store.Write(d, testSnapshot(d, now)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	stats, err := store.CacheStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 2 {
		t.Fatalf("count = %d, want 2", stats.Count)
	}
	if !rates.SameDate(stats.Newest, now) || !rates.SameDate(stats.Oldest, now.AddDate(0, 0, -3)) {
		t.Fatalf("unexpected oldest/newest: %#v", stats)
	}
	if stats.TotalSize <= 0 {
		t.Fatal("total size should be positive")
	}
}
