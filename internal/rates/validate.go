package rates

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultRequiredCodes is the representative sample checked on every payload.
var DefaultRequiredCodes = []string{"USD", "EUR", "GBP", "CNY"}

// Validate reports whether a raw provider payload has the expected shape.
// It is a pure predicate; callers log the returned reason themselves.
func Validate(raw []byte, requiredCodes []string) (bool, error) {
	var payload providerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, fmt.Errorf("decode provider payload: %w", err)
	}
	if err := validatePayload(&payload, requiredCodes); err != nil {
		return false, err
	}
	return true, nil
}

func validatePayload(payload *providerPayload, requiredCodes []string) error {
	if payload.Date == "" {
		return fmt.Errorf("payload missing date field")
	}
	if payload.PreviousDate == "" {
		return fmt.Errorf("payload missing previous-date field")
	}
	if len(payload.Valute) == 0 {
		return fmt.Errorf("payload has no currency map")
	}

	if len(requiredCodes) == 0 {
		requiredCodes = DefaultRequiredCodes
	}

	for _, code := range requiredCodes {
		entry, ok := payload.Valute[strings.ToUpper(code)]
		if !ok {
			return fmt.Errorf("payload missing currency %s", code)
		}
		if err := entry.complete(code); err != nil {
			return err
		}
	}

	// Nominal is a divisor downstream; a non-positive one must never pass,
	// not even on currencies outside the sample.
	for code, entry := range payload.Valute {
		if entry.Nominal != nil && *entry.Nominal <= 0 {
			return fmt.Errorf("currency %s: nominal must be positive, got %d", code, *entry.Nominal)
		}
	}

	return nil
}

func (e providerCurrencyEntry) complete(code string) error {
	switch {
	case e.ID == nil:
		return fmt.Errorf("currency %s: missing ID", code)
	case e.NumCode == nil:
		return fmt.Errorf("currency %s: missing NumCode", code)
	case e.CharCode == nil:
		return fmt.Errorf("currency %s: missing CharCode", code)
	case e.Nominal == nil:
		return fmt.Errorf("currency %s: missing Nominal", code)
	case e.Name == nil:
		return fmt.Errorf("currency %s: missing Name", code)
	case e.Value == nil:
		return fmt.Errorf("currency %s: missing Value", code)
	case e.Previous == nil:
		return fmt.Errorf("currency %s: missing Previous", code)
	}
	return nil
}
