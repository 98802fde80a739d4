package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pulse-currency/internal/rates"
)

var (
	// ErrNotFound indicates no cached snapshot exists for the date.
	ErrNotFound = errors.New("cache: snapshot not found")
	// ErrStale indicates a snapshot exists but exceeds the caller's max age.
	ErrStale = errors.New("cache: snapshot is stale")
	// ErrCorrupt indicates on-disk bytes could not be parsed. Callers treat
	// it the same as ErrNotFound.
	ErrCorrupt = errors.New("cache: snapshot is corrupt")
)

const (
	filePrefix = "rates_"
	fileSuffix = ".json"
)

// Options tune the on-disk snapshot store.
type Options struct {
	Dir string
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Store owns the one-file-per-date snapshot layout under a cache root.
type Store struct {
	dir    string
	now    func() time.Time
	logger zerolog.Logger
}

// NewStore constructs a snapshot store rooted at opts.Dir.
func NewStore(opts Options, logger zerolog.Logger) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dir := opts.Dir
	if dir == "" {
		dir = "cache"
	}
	return &Store{
		dir:    dir,
		now:    now,
		logger: logger.With().Str("component", "cache_store").Logger(),
	}
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) filename(date time.Time) string {
	return filepath.Join(s.dir, filePrefix+rates.DateKey(date)+fileSuffix)
}

// Read loads the snapshot for a calendar date. maxAge zero disables the
// freshness check; otherwise a snapshot fetched longer than maxAge ago is
// reported as ErrStale together with its contents.
func (s *Store) Read(date time.Time, maxAge time.Duration) (*rates.Snapshot, error) {
	snap, err := s.readFile(s.filename(date))
	if err != nil {
		return nil, err
	}

	if maxAge > 0 && s.now().Sub(snap.FetchedAt) > maxAge {
		return snap, fmt.Errorf("%w: fetched at %s", ErrStale, snap.FetchedAt.Format(time.RFC3339))
	}
	return snap, nil
}

func (s *Store) readFile(path string) (*rates.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var snap rates.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	if snap.AsOf.IsZero() || len(snap.Currencies) == 0 {
		return nil, fmt.Errorf("%w: %s: incomplete snapshot", ErrCorrupt, path)
	}
	return &snap, nil
}

// Write persists a snapshot under date, atomically replacing any existing
// record. A date after "now" is coerced to today before storage; this is the
// single home of the no-future-date invariant, so a provider response with a
// future embedded date can never surface later than the current day.
func (s *Store) Write(date time.Time, snap *rates.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cache: nil snapshot")
	}

	today := s.now()
	if rates.Midnight(date).After(rates.Midnight(today)) {
		s.logger.Warn().
			Time("requested", date).
			Time("coerced", today).
			Msg("refusing to cache future-dated snapshot; coercing to today")
		date = today
		if rates.Midnight(snap.AsOf).After(rates.Midnight(today)) {
			clamped := *snap
			clamped.AsOf = rates.Midnight(today)
			snap = &clamped
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	target := s.filename(date)
	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.Debug().Str("file", target).Time("date", date).Msg("snapshot cached")
	return nil
}

// FindLatestBeforeOrOn scans backward day-by-day from date and returns the
// first cached snapshot, ignoring freshness. It gives up after lookbackDays
// with ErrNotFound. Corrupt entries are skipped, not fatal.
func (s *Store) FindLatestBeforeOrOn(date time.Time, lookbackDays int) (*rates.Snapshot, error) {
	if lookbackDays < 0 {
		lookbackDays = 0
	}

	for back := 0; back <= lookbackDays; back++ {
		check := date.AddDate(0, 0, -back)
		snap, err := s.readFile(s.filename(check))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if errors.Is(err, ErrCorrupt) {
				s.logger.Warn().Err(err).Time("date", check).Msg("skipping corrupt cache entry during lookback")
				continue
			}
			return nil, err
		}
		s.logger.Info().Time("date", check).Int("days_back", back).Msg("lookback hit")
		return snap, nil
	}
	return nil, ErrNotFound
}

// Prune deletes all records dated strictly before now minus olderThanDays.
// Individual file errors are logged and skipped. Returns the deleted count.
func (s *Store) Prune(olderThanDays int) (int, error) {
	cutoff := rates.Midnight(s.now().AddDate(0, 0, -olderThanDays))

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		date, ok := dateFromFilename(entry.Name())
		if !ok {
			continue
		}
		if !date.Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("failed to prune cache entry")
			continue
		}
		deleted++
	}

	s.logger.Info().Int("deleted", deleted).Int("older_than_days", olderThanDays).Msg("cache pruned")
	return deleted, nil
}

// Stats summarises the cache directory contents.
type Stats struct {
	Count     int
	Oldest    time.Time
	Newest    time.Time
	TotalSize int64
}

// CacheStats enumerates the cache directory without parsing file contents.
func (s *Store) CacheStats() (Stats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("read cache dir: %w", err)
	}

	var stats Stats
	for _, entry := range entries {
		date, ok := dateFromFilename(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("failed to stat cache entry")
			continue
		}
		stats.Count++
		stats.TotalSize += info.Size()
		if stats.Oldest.IsZero() || date.Before(stats.Oldest) {
			stats.Oldest = date
		}
		if date.After(stats.Newest) {
			stats.Newest = date
		}
	}
	return stats, nil
}

func dateFromFilename(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	key := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	date, err := time.Parse("20060102", key)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
