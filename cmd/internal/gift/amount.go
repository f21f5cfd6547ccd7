package gift

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxAmountCents keeps amounts inside NUMERIC(14,2).
const maxAmountCents = 99_999_999_999_999

var errBadAmount = errors.New("amount must be a positive decimal with at most two fractional digits")

// Amount is a positive decimal in currency-native units with two fractional digits,
// held as hundredths so arithmetic and comparison stay exact.
type Amount struct {
	cents int64
}

// ParseAmount parses a decimal such as "50000", "12.5" or "12.50".
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") {
		return Amount{}, errBadAmount
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && (frac == "" || len(frac) > 2)) {
		return Amount{}, errBadAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) || len(whole) > 12 {
		return Amount{}, errBadAmount
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Amount{}, errBadAmount
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return Amount{}, errBadAmount
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return Amount{cents: cents}, nil
}

// AmountFromCents builds an Amount from hundredths.
func AmountFromCents(c int64) Amount { return Amount{cents: c} }

// Cents returns the amount in hundredths.
func (a Amount) Cents() int64 { return a.cents }

// Positive reports whether the amount is > 0 and fits the column.
func (a Amount) Positive() bool { return a.cents > 0 && a.cents <= maxAmountCents }

// IsZero reports whether the amount is unset.
func (a Amount) IsZero() bool { return a.cents == 0 }

// String renders the canonical two-decimal form, e.g. "50000.00".
func (a Amount) String() string {
	c := a.cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON encodes the amount as a JSON string to avoid float rounding.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a JSON string or number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return errBadAmount
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return errBadAmount
		}
		raw = s
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
