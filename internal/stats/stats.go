package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// tradingDaysPerYear is the conventional annualization factor.
const tradingDaysPerYear = 252

var hundred = decimal.NewFromInt(100)

// Changes returns the absolute and percentage day-over-day change of a rate,
// normalised per single currency unit. nominal must be positive; a zero
// previous rate yields a zero percentage change rather than a division.
func Changes(current, previous decimal.Decimal, nominal int) (decimal.Decimal, decimal.Decimal) {
	if nominal <= 0 {
		return decimal.Zero, decimal.Zero
	}
	n := decimal.NewFromInt(int64(nominal))
	curr := current.Div(n)
	prev := previous.Div(n)

	abs := curr.Sub(prev)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = abs.Div(prev).Mul(hundred)
	}
	return abs.Round(4), pct.Round(2)
}

// Volatility computes the standard deviation of log returns over a rate
// series, as a percentage. With annualize it is scaled by √252.
func Volatility(series []decimal.Decimal, annualize bool) float64 {
	if len(series) < 2 {
		return 0
	}

	logReturns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].InexactFloat64()
		curr := series[i].InexactFloat64()
		if prev <= 0 || curr <= 0 {
			return 0
		}
		logReturns = append(logReturns, math.Log(curr/prev))
	}

	daily := stdDev(logReturns)
	if annualize {
		return round2(daily * math.Sqrt(tradingDaysPerYear) * 100)
	}
	return round2(daily * 100)
}

// MovingAverage computes a simple moving average with the given window.
// Returns nil when the series is shorter than the window.
func MovingAverage(series []decimal.Decimal, window int) []decimal.Decimal {
	if window <= 0 || len(series) < window {
		return nil
	}

	w := decimal.NewFromInt(int64(window))
	out := make([]decimal.Decimal, 0, len(series)-window+1)
	sum := decimal.Zero
	for i, v := range series {
		sum = sum.Add(v)
		if i >= window {
			sum = sum.Sub(series[i-window])
		}
		if i >= window-1 {
			out = append(out, sum.Div(w))
		}
	}
	return out
}

// Returns computes day-over-day percentage returns.
func Returns(series []decimal.Decimal) []decimal.Decimal {
	if len(series) < 2 {
		return nil
	}
	out := make([]decimal.Decimal, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1].IsZero() {
			out = append(out, decimal.Zero)
			continue
		}
		r := series[i].Sub(series[i-1]).Div(series[i-1]).Mul(hundred)
		out = append(out, r.Round(2))
	}
	return out
}

// Correlation computes the Pearson correlation coefficient of two equally
// long rate series. Returns 0 when undefined.
func Correlation(a, b []decimal.Decimal) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}

	xs := toFloats(a)
	ys := toFloats(b)
	meanX := mean(xs)
	meanY := mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return round4(cov / math.Sqrt(varX*varY))
}

// Convert exchanges an amount between two currencies through the home
// currency. Nominals must be positive and the target rate non-zero.
func Convert(amount, fromRate, toRate decimal.Decimal, fromNominal, toNominal int) (decimal.Decimal, bool) {
	if fromNominal <= 0 || toNominal <= 0 {
		return decimal.Zero, false
	}
	from := fromRate.Div(decimal.NewFromInt(int64(fromNominal)))
	to := toRate.Div(decimal.NewFromInt(int64(toNominal)))
	if to.IsZero() {
		return decimal.Zero, false
	}
	return amount.Mul(from).Div(to).Round(2), true
}

// Summary aggregates descriptive statistics for a rate series.
type Summary struct {
	Mean           decimal.Decimal
	Median         decimal.Decimal
	StdDev         float64
	Min            decimal.Decimal
	Max            decimal.Decimal
	TotalReturn    decimal.Decimal
	AvgDailyReturn decimal.Decimal
}

// Summarize computes the Summary for a non-empty series.
func Summarize(series []decimal.Decimal) (Summary, bool) {
	if len(series) == 0 {
		return Summary{}, false
	}

	sorted := make([]decimal.Decimal, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	sum := decimal.Zero
	for _, v := range series {
		sum = sum.Add(v)
	}
	meanVal := sum.Div(decimal.NewFromInt(int64(len(series))))

	var median decimal.Decimal
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
	} else {
		median = sorted[mid]
	}

	totalReturn := decimal.Zero
	if !series[0].IsZero() {
		totalReturn = series[len(series)-1].Sub(series[0]).Div(series[0]).Mul(hundred).Round(2)
	}

	avgDaily := decimal.Zero
	if rets := Returns(series); len(rets) > 0 {
		retSum := decimal.Zero
		for _, r := range rets {
			retSum = retSum.Add(r)
		}
		avgDaily = retSum.Div(decimal.NewFromInt(int64(len(rets)))).Round(2)
	}

	return Summary{
		Mean:           meanVal.Round(4),
		Median:         median.Round(4),
		StdDev:         round4(stdDev(toFloats(series))),
		Min:            sorted[0],
		Max:            sorted[len(sorted)-1],
		TotalReturn:    totalReturn,
		AvgDailyReturn: avgDaily,
	}, true
}

func toFloats(series []decimal.Decimal) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = v.InexactFloat64()
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
