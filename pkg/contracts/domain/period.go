package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Period identifies one fiscal quarter. It is ordered by (Year, Quarter).
type Period struct {
	Year    int `json:"ano" validate:"required,min=1900,max=9999"`
	Quarter int `json:"trimestre" validate:"required,min=1,max=4"`
}

// ErrInvalidQuarter is returned when a quarter falls outside 1..4.
var ErrInvalidQuarter = errors.New("quarter must be between 1 and 4")

var (
	labelPattern  = regexp.MustCompile(`^([1-4])T(\d{4})$`)
	quarterDigits = regexp.MustCompile(`\d`)
)

// NewPeriod builds a Period, rejecting quarters outside 1..4.
func NewPeriod(year, quarter int) (Period, error) {
	if quarter < 1 || quarter > 4 {
		return Period{}, fmt.Errorf("%w: got %d", ErrInvalidQuarter, quarter)
	}
	if year <= 0 {
		return Period{}, fmt.Errorf("invalid year: %d", year)
	}
	return Period{Year: year, Quarter: quarter}, nil
}

// ParseLabel parses labels such as "1T2024".
func ParseLabel(label string) (Period, error) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return Period{}, fmt.Errorf("invalid period label %q", label)
	}
	q, _ := strconv.Atoi(m[1])
	y, _ := strconv.Atoi(m[2])
	return NewPeriod(y, q)
}

// ParseQuarterToken extracts the quarter from tokens such as "3T", "3" or "3º trimestre".
func ParseQuarterToken(token string) (int, error) {
	d := quarterDigits.FindString(token)
	if d == "" {
		return 0, fmt.Errorf("no quarter digit in %q", token)
	}
	q, _ := strconv.Atoi(d)
	if q < 1 || q > 4 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidQuarter, q)
	}
	return q, nil
}

// Label renders the period as "<q>T<yyyy>".
func (p Period) Label() string {
	return fmt.Sprintf("%dT%d", p.Quarter, p.Year)
}

// QuarterLabel renders only the quarter part, e.g. "2T".
func (p Period) QuarterLabel() string {
	return fmt.Sprintf("%dT", p.Quarter)
}

// Key is the "Ano-Trimestre" composite used for distinct-period counting.
func (p Period) Key() string {
	return fmt.Sprintf("%d-%d", p.Year, p.Quarter)
}

// Compare returns -1, 0 or 1.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Quarter < o.Quarter:
		return -1
	case p.Quarter > o.Quarter:
		return 1
	}
	return 0
}

// Before reports whether p sorts strictly before o.
func (p Period) Before(o Period) bool {
	return p.Compare(o) < 0
}

func (p Period) String() string {
	return p.Label()
}
