package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"pulse-currency/internal/cache"
	"pulse-currency/internal/rates"
	"pulse-currency/internal/stats"
)

// seriesPoint is one dated observation of a currency's per-unit rate.
type seriesPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

// History prints descriptive statistics for one currency across the cached
// window. It reads the cache only; missing days (weekends, gaps) are skipped.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	points, err := a.cachedSeries(opts.Currency, opts.Days)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintln(os.Stdout, "no cached data for", opts.Currency)
		return nil
	}

	series := make([]decimal.Decimal, len(points))
	for i, p := range points {
		series[i] = p.Value
	}

	summary, _ := stats.Summarize(series)
	dailyVol := stats.Volatility(series, false)
	annualVol := stats.Volatility(series, true)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "%s over %d cached day(s), %s – %s\n",
		opts.Currency, len(points),
		points[0].Date.Format("2006-01-02"),
		points[len(points)-1].Date.Format("2006-01-02"))
	fmt.Fprintf(writer, "Mean\t%s\n", summary.Mean.StringFixed(4))
	fmt.Fprintf(writer, "Median\t%s\n", summary.Median.StringFixed(4))
	fmt.Fprintf(writer, "Std dev\t%.4f\n", summary.StdDev)
	fmt.Fprintf(writer, "Min\t%s\n", summary.Min.StringFixed(4))
	fmt.Fprintf(writer, "Max\t%s\n", summary.Max.StringFixed(4))
	fmt.Fprintf(writer, "Total return\t%s%%\n", summary.TotalReturn.StringFixed(2))
	fmt.Fprintf(writer, "Avg daily return\t%s%%\n", summary.AvgDailyReturn.StringFixed(2))
	fmt.Fprintf(writer, "Volatility (daily)\t%.2f%%\n", dailyVol)
	fmt.Fprintf(writer, "Volatility (annualized)\t%.2f%%\n", annualVol)

	if opts.Window > 0 {
		if ma := stats.MovingAverage(series, opts.Window); len(ma) > 0 {
			fmt.Fprintf(writer, "MA(%d) latest\t%s\n", opts.Window, ma[len(ma)-1].StringFixed(4))
		} else {
			fmt.Fprintf(writer, "MA(%d)\tnot enough data\n", opts.Window)
		}
	}

	writer.Flush()
	return nil
}

// cachedSeries assembles the per-unit rate series for a currency from the
// cache, oldest first, scanning the last days calendar days.
func (a *App) cachedSeries(currency string, days int) ([]seriesPoint, error) {
	if currency == "" {
		return nil, errors.New("currency code is required")
	}
	if days <= 0 {
		days = 14
	}

	store := a.newStore()
	today := time.Now()

	var points []seriesPoint
	for back := days - 1; back >= 0; back-- {
		date := today.AddDate(0, 0, -back)
		snap, err := store.Read(date, 0)
		if err != nil {
			if errors.Is(err, cache.ErrNotFound) || errors.Is(err, cache.ErrCorrupt) {
				continue
			}
			return nil, err
		}

		rate, ok := snap.Currency(currency)
		if !ok {
			continue
		}
		perUnit, err := rate.PerUnit()
		if err != nil {
			a.Logger.Warn().Err(err).Time("date", date).Msg("skipping invalid cached rate")
			continue
		}
		points = append(points, seriesPoint{Date: rates.Midnight(date), Value: perUnit})
	}
	return points, nil
}
