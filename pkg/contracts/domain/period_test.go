package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeriod(t *testing.T) {
	tests := []struct {
		name    string
		year    int
		quarter int
		wantErr bool
	}{
		{name: "first quarter", year: 2024, quarter: 1},
		{name: "last quarter", year: 2024, quarter: 4},
		{name: "quarter zero", year: 2024, quarter: 0, wantErr: true},
		{name: "quarter five", year: 2024, quarter: 5, wantErr: true},
		{name: "zero year", year: 0, quarter: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPeriod(tt.year, tt.quarter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.year, p.Year)
			assert.Equal(t, tt.quarter, p.Quarter)
		})
	}
}

func TestPeriodLabels(t *testing.T) {
	p := Period{Year: 2025, Quarter: 3}
	assert.Equal(t, "3T2025", p.Label())
	assert.Equal(t, "3T", p.QuarterLabel())
	assert.Equal(t, "2025-3", p.Key())

	parsed, err := ParseLabel("3T2025")
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	_, err = ParseLabel("5T2025")
	assert.Error(t, err)
}

func TestPeriodOrdering(t *testing.T) {
	a := Period{Year: 2024, Quarter: 4}
	b := Period{Year: 2025, Quarter: 1}
	c := Period{Year: 2025, Quarter: 2}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
	assert.Equal(t, 0, b.Compare(Period{Year: 2025, Quarter: 1}))
}

func TestParseQuarterToken(t *testing.T) {
	tests := []struct {
		token   string
		want    int
		wantErr bool
	}{
		{token: "1T", want: 1},
		{token: "4", want: 4},
		{token: "2º trimestre", want: 2},
		{token: "T", wantErr: true},
		{token: "9T", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseQuarterToken(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodExpenseAggregateMerge(t *testing.T) {
	a := NewPeriodExpenseAggregate(Period{Year: 2024, Quarter: 1})
	a.Add("B", mustDecimal(t, "10.50"))
	a.Add("A", mustDecimal(t, "1"))

	b := NewPeriodExpenseAggregate(Period{Year: 2024, Quarter: 1})
	b.Add("B", mustDecimal(t, "0.25"))
	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, []string{"A", "B"}, a.Identifiers())
	assert.Equal(t, "10.75", a.Totals["B"].StringFixed(2))
	assert.Equal(t, 2, a.Len())
}

func TestRegistryRecordCompleteness(t *testing.T) {
	full := RegistryRecord{RegistrationID: "1", Category: "Cooperativa", Region: "SP"}
	partial := RegistryRecord{Region: "RJ"}
	assert.Equal(t, 3, full.Completeness())
	assert.Equal(t, 1, partial.Completeness())
	assert.Equal(t, AttributeTuple{Region: "RJ"}, partial.Attributes())
}
