package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	dErrors "intia/pkg/domain-errors"
)

// Money is a fixed-point amount with two decimal places, stored as cents.
// Premiums are NUMERIC(10,2) in the database; keeping the value integral
// avoids float drift in arithmetic while snapshots may still render floats.
type Money struct {
	cents int64
}

// ParseMoney parses a decimal string such as "450.00" or "1250.5".
// At most two fractional digits are accepted.
func ParseMoney(raw string) (Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Money{}, dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
	neg := false
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = raw[1:]
	}
	whole, frac := raw, ""
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		whole, frac = raw[:idx], raw[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return Money{}, dErrors.New(dErrors.CodeInvalidInput, "amount has more than two decimal places")
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, dErrors.New(dErrors.CodeInvalidInput, "invalid amount")
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return Money{}, dErrors.New(dErrors.CodeInvalidInput, "invalid amount")
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return Money{cents: cents}, nil
}

// MoneyFromCents builds a Money from an integral number of cents.
func MoneyFromCents(cents int64) Money { return Money{cents: cents} }

// Cents returns the amount in cents.
func (m Money) Cents() int64 { return m.cents }

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.cents > 0 }

// IsZero reports whether the amount is unset or zero.
func (m Money) IsZero() bool { return m.cents == 0 }

// Float64 returns the amount as a float, the form audit snapshots store.
func (m Money) Float64() float64 { return float64(m.cents) / 100 }

// String renders the canonical two-decimal form, e.g. "450.00".
func (m Money) String() string {
	cents := m.cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON emits the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both a JSON number and a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "null" {
		return nil
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer for NUMERIC columns.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		parsed, err := ParseMoney(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := ParseMoney(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case float64:
		*m = Money{cents: int64(v*100 + 0.5)}
		return nil
	case int64:
		*m = Money{cents: v * 100}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}
