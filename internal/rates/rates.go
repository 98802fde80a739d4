package rates

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyRate is the quoted price for one foreign currency.
// Value and Previous are home-currency prices per Nominal units.
type CurrencyRate struct {
	ID       string          `json:"id"`
	NumCode  int             `json:"num_code"`
	CharCode string          `json:"char_code"`
	Nominal  int             `json:"nominal"`
	Name     string          `json:"name"`
	Value    decimal.Decimal `json:"value"`
	Previous decimal.Decimal `json:"previous"`
}

// PerUnit returns the price of a single unit of the currency.
func (c CurrencyRate) PerUnit() (decimal.Decimal, error) {
	if c.Nominal <= 0 {
		return decimal.Decimal{}, fmt.Errorf("currency %s: nominal must be positive, got %d", c.CharCode, c.Nominal)
	}
	return c.Value.Div(decimal.NewFromInt(int64(c.Nominal))), nil
}

// PreviousPerUnit returns the previous-day price of a single unit.
func (c CurrencyRate) PreviousPerUnit() (decimal.Decimal, error) {
	if c.Nominal <= 0 {
		return decimal.Decimal{}, fmt.Errorf("currency %s: nominal must be positive, got %d", c.CharCode, c.Nominal)
	}
	return c.Previous.Div(decimal.NewFromInt(int64(c.Nominal))), nil
}

// Snapshot is the full published rate set for one calendar date.
// Immutable once created.
type Snapshot struct {
	AsOf       time.Time               `json:"as_of"`
	PreviousAs time.Time               `json:"previous_as_of"`
	Currencies map[string]CurrencyRate `json:"currencies"`
	FetchedAt  time.Time               `json:"fetched_at"`
}

// Currency looks up a rate by its 3-letter code.
func (s *Snapshot) Currency(code string) (CurrencyRate, bool) {
	c, ok := s.Currencies[strings.ToUpper(code)]
	return c, ok
}

// providerPayload mirrors the upstream daily_json.js document.
type providerPayload struct {
	Date         string                           `json:"Date"`
	PreviousDate string                           `json:"PreviousDate"`
	Valute       map[string]providerCurrencyEntry `json:"Valute"`
}

// providerCurrencyEntry uses pointers so that absent fields are
// distinguishable from zero values during validation.
type providerCurrencyEntry struct {
	ID       *string          `json:"ID"`
	NumCode  *json.Number     `json:"NumCode"`
	CharCode *string          `json:"CharCode"`
	Nominal  *int             `json:"Nominal"`
	Name     *string          `json:"Name"`
	Value    *decimal.Decimal `json:"Value"`
	Previous *decimal.Decimal `json:"Previous"`
}

// ParsePayload decodes and validates a raw provider document into a Snapshot.
// requiredCodes is the representative sample checked field-by-field.
func ParsePayload(raw []byte, requiredCodes []string, fetchedAt time.Time) (*Snapshot, error) {
	var payload providerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}

	if err := validatePayload(&payload, requiredCodes); err != nil {
		return nil, err
	}

	asOf, err := parseProviderDate(payload.Date)
	if err != nil {
		return nil, fmt.Errorf("parse payload date: %w", err)
	}
	prev, err := parseProviderDate(payload.PreviousDate)
	if err != nil {
		return nil, fmt.Errorf("parse payload previous date: %w", err)
	}

	currencies := make(map[string]CurrencyRate, len(payload.Valute))
	for code, entry := range payload.Valute {
		rate, err := entry.toCurrencyRate(code)
		if err != nil {
			return nil, err
		}
		currencies[strings.ToUpper(code)] = rate
	}

	return &Snapshot{
		AsOf:       asOf,
		PreviousAs: prev,
		Currencies: currencies,
		FetchedAt:  fetchedAt.UTC(),
	}, nil
}

func (e providerCurrencyEntry) toCurrencyRate(code string) (CurrencyRate, error) {
	rate := CurrencyRate{CharCode: strings.ToUpper(code)}
	if e.ID != nil {
		rate.ID = *e.ID
	}
	if e.CharCode != nil {
		rate.CharCode = strings.ToUpper(*e.CharCode)
	}
	if e.NumCode != nil {
		n, err := strconv.Atoi(e.NumCode.String())
		if err != nil {
			return CurrencyRate{}, fmt.Errorf("currency %s: bad numeric code %q", code, e.NumCode.String())
		}
		rate.NumCode = n
	}
	if e.Nominal != nil {
		rate.Nominal = *e.Nominal
	}
	if e.Name != nil {
		rate.Name = *e.Name
	}
	if e.Value != nil {
		rate.Value = *e.Value
	}
	if e.Previous != nil {
		rate.Previous = *e.Previous
	}
	if rate.Nominal <= 0 {
		return CurrencyRate{}, fmt.Errorf("currency %s: nominal must be positive, got %d", code, rate.Nominal)
	}
	return rate, nil
}

// parseProviderDate accepts both RFC3339 timestamps and bare dates.
func parseProviderDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date field")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if idx := strings.IndexByte(v, 'T'); idx > 0 {
		v = v[:idx]
	}
	return time.Parse("2006-01-02", v)
}

// DateKey derives the canonical cache key for a calendar date.
func DateKey(t time.Time) string {
	return t.Format("20060102")
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Midnight truncates an instant to the start of its calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
