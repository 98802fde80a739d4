package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"pulse-currency/internal/cache"
	"pulse-currency/internal/fetcher"
	"pulse-currency/internal/rates"
)

// ErrNoDataAvailable is the total-failure result: no fresh cache, no
// successful fetch, and no fallback entry within the lookback window.
var ErrNoDataAvailable = errors.New("resolver: no rate data available")

// Options tune resolution policy.
type Options struct {
	// MaxAge bounds cache freshness for the initial lookup.
	MaxAge time.Duration
	// LookbackDays bounds the fallback scan.
	LookbackDays int
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Resolver produces a rate snapshot for a requested date by consulting the
// cache first, fetching remotely on a miss, persisting successful fetches,
// and degrading to the most recent cached snapshot when the remote fails.
type Resolver struct {
	store   *cache.Store
	fetcher fetcher.RateFetcher
	opts    Options
	logger  zerolog.Logger
	now     func() time.Time
	group   singleflight.Group
}

// New constructs a Resolver.
func New(store *cache.Store, f fetcher.RateFetcher, opts Options, logger zerolog.Logger) *Resolver {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		store:   store,
		fetcher: f,
		opts:    opts,
		logger:  logger.With().Str("component", "resolver").Logger(),
		now:     now,
	}
}

// GetToday resolves the snapshot for the current date.
func (r *Resolver) GetToday(ctx context.Context) (*rates.Snapshot, error) {
	return r.GetRates(ctx, r.now())
}

// GetRates resolves the snapshot for a calendar date. Concurrent calls for
// the same date collapse into a single in-flight fetch; every caller
// receives the same resolved value.
func (r *Resolver) GetRates(ctx context.Context, date time.Time) (*rates.Snapshot, error) {
	v, err, _ := r.group.Do(rates.DateKey(date), func() (interface{}, error) {
		return r.resolve(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rates.Snapshot), nil
}

func (r *Resolver) resolve(ctx context.Context, date time.Time) (*rates.Snapshot, error) {
	snap, err := r.store.Read(date, r.opts.MaxAge)
	switch {
	case err == nil:
		r.logger.Debug().Time("date", date).Msg("cache hit")
		return snap, nil
	case errors.Is(err, cache.ErrStale):
		r.logger.Debug().Time("date", date).Msg("cache entry stale; refreshing")
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrCorrupt):
		r.logger.Debug().Time("date", date).Msg("cache miss")
	default:
		// Unexpected disk failure reads as a miss; resolution proceeds.
		r.logger.Warn().Err(err).Time("date", date).Msg("cache read failed; treating as miss")
	}

	fetched, ferr := r.fetcher.Fetch(ctx, date)
	if ferr == nil {
		// Persist under the date the payload itself carries; the store
		// coerces anything past today. A failed write degrades to
		// "return without persisting".
		if werr := r.store.Write(fetched.AsOf, fetched); werr != nil {
			r.logger.Error().Err(werr).Time("date", fetched.AsOf).Msg("failed to persist snapshot; continuing")
		}
		return fetched, nil
	}

	kind, _ := fetcher.KindOf(ferr)
	if kind == fetcher.KindNotFound || kind == fetcher.KindInvalidDate {
		// Archives genuinely lack weekends and holidays; the caller decides
		// whether to try an adjacent date. No fallback scan here.
		return nil, ferr
	}

	r.logger.Warn().Err(ferr).Time("date", date).Msg("fetch failed; scanning cache for fallback")

	fallback, serr := r.store.FindLatestBeforeOrOn(r.now(), r.opts.LookbackDays)
	if serr != nil {
		if errors.Is(serr, cache.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNoDataAvailable, ferr)
		}
		return nil, serr
	}

	r.logger.Info().
		Time("requested", date).
		Time("served", fallback.AsOf).
		Msg("serving degraded fallback snapshot")
	return fallback, nil
}

// PruneCache deletes cached snapshots older than the given number of days.
func (r *Resolver) PruneCache(olderThanDays int) (int, error) {
	return r.store.Prune(olderThanDays)
}

// CacheStats reports cache directory contents.
func (r *Resolver) CacheStats() (cache.Stats, error) {
	return r.store.CacheStats()
}
