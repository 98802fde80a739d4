package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"pulse-currency/internal/fetcher"
	"pulse-currency/internal/rates"
	"pulse-currency/internal/resolver"
	"pulse-currency/internal/stats"
)

// Fetch resolves and prints the snapshot for a date (today when zero).
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	res := a.newResolver()

	var snap *rates.Snapshot
	var err error
	if opts.Date.IsZero() {
		snap, err = res.GetToday(ctx)
	} else {
		snap, err = res.GetRates(ctx, opts.Date)
	}
	if err != nil {
		return describeResolveError(err)
	}

	requested := opts.Date
	if requested.IsZero() {
		requested = time.Now()
	}
	if !rates.SameDate(snap.AsOf, requested) {
		fmt.Fprintf(os.Stdout, "note: showing rates as of %s (requested %s)\n",
			snap.AsOf.Format("2006-01-02"), requested.Format("2006-01-02"))
	}

	printSnapshot(snap, a.Config.Tracking.Currencies)
	return nil
}

// describeResolveError maps terminal resolver failures to user-facing text;
// retry and backoff mechanics stay invisible above this point.
func describeResolveError(err error) error {
	if errors.Is(err, resolver.ErrNoDataAvailable) {
		return errors.New("no data available: provider unreachable and no usable cache")
	}
	if kind, ok := fetcher.KindOf(err); ok {
		switch kind {
		case fetcher.KindNotFound:
			return errors.New("no data published for that date (weekend or holiday archive gap)")
		case fetcher.KindInvalidDate:
			return errors.New("cannot fetch rates for a future date")
		}
	}
	return err
}

func printSnapshot(snap *rates.Snapshot, tracked []string) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Rates as of %s (previous %s)\n",
		snap.AsOf.Format("2006-01-02"), snap.PreviousAs.Format("2006-01-02"))
	fmt.Fprintln(writer, "Code\tName\tNominal\tValue\tChange\tChange%")

	codes := tracked
	if len(codes) == 0 {
		codes = make([]string, 0, len(snap.Currencies))
		for code := range snap.Currencies {
			codes = append(codes, code)
		}
		sort.Strings(codes)
	}

	for _, code := range codes {
		currency, ok := snap.Currency(code)
		if !ok {
			continue
		}
		abs, pct := stats.Changes(currency.Value, currency.Previous, currency.Nominal)
		fmt.Fprintf(writer, "%s\t%s\t%d\t%s\t%s\t%s%%\n",
			currency.CharCode,
			currency.Name,
			currency.Nominal,
			currency.Value.StringFixed(4),
			abs.StringFixed(4),
			pct.StringFixed(2),
		)
	}

	writer.Flush()
}
