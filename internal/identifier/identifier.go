// Package identifier normalizes and validates the 14-digit national
// company identifier (CNPJ) with its two mod-11 check digits.
package identifier

import (
	"fmt"
	"strings"
)

// Length is the number of digits in a normalized identifier.
const Length = 14

// Checksum holds the weight vectors of the two check-digit passes.
type Checksum struct {
	First  []int
	Second []int
}

// Default carries the published CNPJ weight vectors.
var Default = Checksum{
	First:  []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2},
	Second: []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2},
}

// Digits strips everything that is not an ASCII digit.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Normalize keeps the digits of raw and left-pads them to 14.
// It reports false when no digits remain or more than 14 do.
func Normalize(raw string) (string, bool) {
	d := Digits(raw)
	if d == "" || len(d) > Length {
		return "", false
	}
	return strings.Repeat("0", Length-len(d)) + d, true
}

// Validate checks shape and both check digits using the default weights.
func Validate(id string) bool {
	return Default.Validate(id)
}

// Validate checks that id is 14 digits, not all identical, and that both
// check digits match.
func (c Checksum) Validate(id string) bool {
	if len(id) != Length || Digits(id) != id {
		return false
	}
	if strings.Count(id, id[:1]) == Length {
		return false
	}

	base := len(c.First)
	first := c.digit(id[:base], c.First)
	second := c.digit(id[:base]+string(rune('0'+first)), c.Second)

	return int(id[base]-'0') == first && int(id[base+1]-'0') == second
}

func (c Checksum) digit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

// NormalizeValid combines Normalize and Validate.
func NormalizeValid(raw string) (string, bool) {
	id, ok := Normalize(raw)
	if !ok {
		return "", false
	}
	return id, Validate(id)
}

// Format renders a normalized identifier as 00.000.000/0000-00.
func Format(id string) string {
	if len(id) != Length {
		return id
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", id[0:2], id[2:5], id[5:8], id[8:12], id[12:14])
}
