// Package money parses and renders monetary text in Brazilian notation
// ("1.234,56") using exact decimal arithmetic.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalid is returned for text that is not a monetary value.
var ErrInvalid = errors.New("invalid monetary value")

// Places is the number of fractional digits kept on output.
const Places = 2

// ParseBR parses text written with a thousands dot and a decimal comma.
// Every dot is removed and the comma becomes the decimal point.
func ParseBR(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalid)
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	return parse(raw, s)
}

// Parse accepts both Brazilian notation and plain-dot decimals.
// When both separators appear, the one that occurs last is the decimal separator.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalid)
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return parse(raw, s)
}

func parse(raw, normalized string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	return d, nil
}

// Round quantizes to two places, rounding half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// FormatBR renders d with two places, "." grouping and "," as decimal separator.
func FormatBR(d decimal.Decimal) string {
	s := Round(d).StringFixed(Places)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatPlain renders d with two places and a dot separator, for JSON and SQL.
func FormatPlain(d decimal.Decimal) string {
	return Round(d).StringFixed(Places)
}
