// Package gift records monetary gifts handed over by guests.
package gift

import (
	"strings"
	"time"
)

// PaymentMethod is how a gift was paid.
type PaymentMethod string

const (
	MethodCash PaymentMethod = "cash"
	MethodKHQR PaymentMethod = "khqr"
)

// ParseMethod normalizes s and reports whether it is a known payment method.
func ParseMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodCash, MethodKHQR:
		return m, true
	default:
		return "", false
	}
}

// Currency is the gift's currency.
type Currency string

const (
	CurrencyKHR Currency = "khr"
	CurrencyUSD Currency = "usd"
)

// ParseCurrency normalizes s and reports whether it is a known currency.
func ParseCurrency(s string) (Currency, bool) {
	switch c := Currency(strings.ToLower(strings.TrimSpace(s))); c {
	case CurrencyKHR, CurrencyUSD:
		return c, true
	default:
		return "", false
	}
}

// Gift represents a gift row.
type Gift struct {
	ID            string
	GuestID       string
	EventID       string
	PaymentMethod PaymentMethod
	Currency      Currency
	Amount        Amount
	Note          *string
	ReceiptImage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateInput describes a new gift. EventID must be the guest's event.
type CreateInput struct {
	GuestID       string
	EventID       string
	PaymentMethod string
	Currency      string
	Amount        Amount
	Note          *string
	ReceiptImage  *string
	Now           time.Time
}

// Patch lists the fields to change; nil leaves a field untouched.
type Patch struct {
	PaymentMethod *string
	Currency      *string
	Amount        *Amount
	Note          *string
	ReceiptImage  *string
	Now           time.Time
}

const (
	maxNoteLen = 1000
	maxURLLen  = 2048
)
