package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulse-currency/internal/rates"
)

// RateFetcher retrieves the published rate snapshot for a calendar date.
type RateFetcher interface {
	Fetch(ctx context.Context, date time.Time) (*rates.Snapshot, error)
}

// Kind classifies a fetch failure; the resolver branches on it.
type Kind int

const (
	// KindUnavailable marks transient transport failures, retried with
	// backoff before surfacing.
	KindUnavailable Kind = iota
	// KindNotFound marks a provider 404: the archive has no data for the
	// date. Terminal, never retried.
	KindNotFound
	// KindInvalidPayload marks a structurally malformed response. Terminal:
	// a bad body is assumed deterministic (e.g. a maintenance page).
	KindInvalidPayload
	// KindInvalidDate marks a request for a future date, rejected before
	// any network I/O.
	KindInvalidDate
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindNotFound:
		return "not_found"
	case KindInvalidPayload:
		return "invalid_payload"
	case KindInvalidDate:
		return "invalid_date"
	default:
		return "unknown"
	}
}

// FetchError wraps a fetch failure with its classification.
type FetchError struct {
	Kind Kind
	Date time.Time
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Date.Format("2006-01-02"), e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Date.Format("2006-01-02"), e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure classification from an error chain.
func KindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}
