// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer minor units (paise for rupee figures). This
// file parses decimal strings into those units and formats them back.
package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to minor units with half-up
// rounding on the third decimal place. Zero and negative values are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseMoney is ParseDecimalToCents wrapped in a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// maxWholeUnits keeps iv*100 plus a rounded fraction inside int64.
const maxWholeUnits = (1<<63-1)/100 - 1

var maxCents = decimal.NewFromInt(maxWholeUnits * 100)

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Indian grouping ("1,00,000") is not supported; a comma is a decimal mark.
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	// ASCII only: the fraction below is read byte by byte.
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > maxWholeUnits {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// NewMoney builds a Money from whole currency units.
func NewMoney(units int64) Money {
	return Money{Cents: units * 100}
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount in major units without trailing zeros.
func (m Money) String() string {
	return m.Decimal().String()
}

// Display renders the amount with a rupee sign and Indian digit grouping
// (lakh and crore), e.g. "₹1,23,456.5" or "-₹2,000".
func (m Money) Display() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	intPart, frac, _ := strings.Cut(Money{Cents: cents}.String(), ".")
	out := groupIndian(intPart)
	if frac != "" {
		out += "." + frac
	}
	return sign + "₹" + out
}

// groupIndian inserts a comma after the last three digits and then after
// every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	lead := len(head) % 2
	if lead == 1 {
		b.WriteString(head[:1])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}

// MarshalJSON emits the amount as a plain JSON number in major units, the
// shape API clients already send.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Negative values
// are rejected; zero is accepted here and rejected by Validate where needed.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Money{}
		return nil
	}
	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return ErrInvalidAmount
		}
	} else {
		raw = string(b)
	}
	// JSON numbers may use exponent notation; decimal handles that form.
	if strings.ContainsAny(raw, "eE") {
		d, err := decimal.NewFromString(raw)
		if err != nil || d.Sign() < 0 {
			return ErrInvalidAmount
		}
		cents := d.Shift(2).Round(0)
		if cents.GreaterThan(maxCents) {
			return ErrInvalidAmount
		}
		m.Cents = cents.IntPart()
		return nil
	}
	cents, err := parseCents(raw)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

// NewID returns a fresh opaque identifier for projects and ledger entries.
func NewID() string {
	return uuid.NewString()
}
