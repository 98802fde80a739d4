package rates

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func samplePayload() map[string]any {
	valute := map[string]any{}
	for i, code := range []string{"USD", "EUR", "GBP", "CNY"} {
		valute[code] = map[string]any{
			"ID":       fmt.Sprintf("R0%d", i),
			"NumCode":  "840",
			"CharCode": code,
			"Nominal":  1,
			"Name":     "Currency " + code,
			"Value":    90.5 + float64(i),
			"Previous": 89.9 + float64(i),
		}
	}
	return map[string]any{
		"Date":         "2024-03-01T11:30:00+03:00",
		"PreviousDate": "2024-02-29T11:30:00+03:00",
		"Valute":       valute,
	}
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestValidateAcceptsCompletePayload(t *testing.T) {
	ok, err := Validate(marshal(t, samplePayload()), nil)
	if !ok {
		t.Fatalf("complete payload should validate: %v", err)
	}
}

func TestValidateRejectsMissingTopLevelFields(t *testing.T) {
	for _, field := range []string{"Date", "PreviousDate", "Valute"} {
		payload := samplePayload()
		delete(payload, field)
		if ok, _ := Validate(marshal(t, payload), nil); ok {
			t.Fatalf("payload missing %s should fail validation", field)
		}
	}
}

func TestValidateRejectsEmptyCurrencyMap(t *testing.T) {
	payload := samplePayload()
	payload["Valute"] = map[string]any{}
	if ok, _ := Validate(marshal(t, payload), nil); ok {
		t.Fatal("empty currency map should fail validation")
	}
}

func TestValidateRejectsIncompleteSampledCurrency(t *testing.T) {
	for _, field := range []string{"ID", "NumCode", "CharCode", "Nominal", "Name", "Value", "Previous"} {
		payload := samplePayload()
		usd := payload["Valute"].(map[string]any)["USD"].(map[string]any)
		delete(usd, field)
		if ok, _ := Validate(marshal(t, payload), nil); ok {
			t.Fatalf("USD missing %s should fail validation", field)
		}
	}
}

func TestValidateRejectsNonPositiveNominal(t *testing.T) {
	payload := samplePayload()
	// Nominal violation on a currency outside the sampled set must still fail.
	payload["Valute"].(map[string]any)["XAU"] = map[string]any{
		"ID": "R99", "NumCode": "959", "CharCode": "XAU", "Nominal": 0,
		"Name": "Gold", "Value": 7000.0, "Previous": 6900.0,
	}
	if ok, _ := Validate(marshal(t, payload), nil); ok {
		t.Fatal("zero nominal should fail validation")
	}
}

func TestValidateIsPure(t *testing.T) {
	raw := marshal(t, samplePayload())
	before := string(raw)
	_, _ = Validate(raw, []string{"USD"})
	if string(raw) != before {
		t.Fatal("validation must not mutate its input")
	}
}

func TestParsePayload(t *testing.T) {
	fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snap, err := ParsePayload(marshal(t, samplePayload()), nil, fetchedAt)
	if err != nil {
		t.Fatalf("parse should succeed: %v", err)
	}

	if got := snap.AsOf.Format("2006-01-02"); got != "2024-03-01" {
		t.Fatalf("as-of date = %s, want 2024-03-01", got)
	}
	if got := snap.PreviousAs.Format("2006-01-02"); got != "2024-02-29" {
		t.Fatalf("previous date = %s, want 2024-02-29", got)
	}
	if !snap.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("fetched-at = %s, want %s", snap.FetchedAt, fetchedAt)
	}

	usd, ok := snap.Currency("usd")
	if !ok {
		t.Fatal("USD lookup should be case-insensitive")
	}
	if usd.NumCode != 840 {
		t.Fatalf("numeric code = %d, want 840", usd.NumCode)
	}
	if usd.Nominal != 1 {
		t.Fatalf("nominal = %d, want 1", usd.Nominal)
	}
}

func TestPerUnitGuardsNominal(t *testing.T) {
	rate := CurrencyRate{CharCode: "JPY", Nominal: 0}
	if _, err := rate.PerUnit(); err == nil {
		t.Fatal("zero nominal must never reach a division")
	}
}

func TestDateKey(t *testing.T) {
	d := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	if got := DateKey(d); got != "20240301" {
		t.Fatalf("DateKey = %s, want 20240301", got)
	}
}

func TestParseProviderDateBareDate(t *testing.T) {
	got, err := parseProviderDate("2024-03-01")
	if err != nil {
		t.Fatalf("bare dates should parse: %v", err)
	}
	if got.Day() != 1 || got.Month() != time.March {
		t.Fatalf("unexpected parsed date: %s", got)
	}
}
