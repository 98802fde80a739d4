package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pulse-currency/internal/rates"
)

const dailyPath = "/daily_json.js"

// Options parameterise the HTTP rate client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	UserAgent      string
	// RequiredCodes is the representative currency sample the validator
	// checks on every payload.
	RequiredCodes []string
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Client fetches daily rate documents over HTTP with bounded retries.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewClient constructs a rate client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.cbr-xml-daily.ru"
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "rate_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     now,
	}
}

// endpointFor maps a date to its provider location: today resolves to the
// canonical current-rates document, anything older to the dated archive.
func (c *Client) endpointFor(date time.Time) string {
	if rates.SameDate(date, c.now()) {
		return c.baseURL + dailyPath
	}
	return fmt.Sprintf("%s/archive/%04d/%02d/%02d%s", c.baseURL, date.Year(), int(date.Month()), date.Day(), dailyPath)
}

// Fetch retrieves and validates the snapshot for date. Transport failures are
// retried up to MaxRetries with exponential backoff; 404 and malformed
// payloads are terminal. Fetch never touches the cache.
func (c *Client) Fetch(ctx context.Context, date time.Time) (*rates.Snapshot, error) {
	today := c.now()
	if rates.Midnight(date).After(rates.Midnight(today)) {
		return nil, &FetchError{Kind: KindInvalidDate, Date: date, Err: fmt.Errorf("date is in the future")}
	}

	endpoint := c.endpointFor(date)

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.opts.RetryBaseDelay * time.Duration(1<<(attempt-1))
			c.logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("retrying after transport failure")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, &FetchError{Kind: KindUnavailable, Date: date, Err: err}
			}
		}

		snap, err := c.fetchOnce(ctx, endpoint, date)
		if err == nil {
			c.logger.Info().Time("date", snap.AsOf).Int("currencies", len(snap.Currencies)).Msg("snapshot fetched")
			return snap, nil
		}

		if isTerminal(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &FetchError{Kind: KindUnavailable, Date: date, Err: lastErr}
}

func isTerminal(err error) bool {
	if kind, ok := KindOf(err); ok {
		return kind == KindNotFound || kind == KindInvalidPayload || kind == KindInvalidDate
	}
	return false
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string, date time.Time) (*rates.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pulsecurrency/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &FetchError{Kind: KindNotFound, Date: date, Err: fmt.Errorf("provider has no data at %s", endpoint)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if ok, verr := rates.Validate(raw, c.opts.RequiredCodes); !ok {
		return nil, &FetchError{Kind: KindInvalidPayload, Date: date, Err: verr}
	}

	snap, err := rates.ParsePayload(raw, c.opts.RequiredCodes, c.now())
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidPayload, Date: date, Err: err}
	}
	return snap, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ RateFetcher = (*Client)(nil)
