package money

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBR(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "1.500,00", want: "1500"},
		{raw: "500,00", want: "500"},
		{raw: " 1.234.567,89 ", want: "1234567.89"},
		{raw: "-12,5", want: "-12.5"},
		{raw: "42", want: "42"},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "1,2,3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseBR(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAcceptsBothNotations(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "1.234,56", want: "1234.56"},
		{raw: "1,234.56", want: "1234.56"},
		{raw: "1234.56", want: "1234.56"},
		{raw: "1234,56", want: "1234.56"},
		{raw: "0,10", want: "0.1"},
		{raw: "-3.000,01", want: "-3000.01"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	_, err := Parse("  ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFormatBR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "0,00"},
		{in: "1500", want: "1.500,00"},
		{in: "1234567.891", want: "1.234.567,89"},
		{in: "999.995", want: "1.000,00"},
		{in: "0.005", want: "0,01"},
		{in: "-1234.5", want: "-1.234,50"},
		{in: "100", want: "100,00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBR(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestRoundTripIsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		cents := rng.Int63n(1_000_000_000_000) - 500_000_000_000
		want := decimal.New(cents, -2)

		for _, text := range []string{FormatBR(want), FormatPlain(want)} {
			got, err := Parse(text)
			require.NoError(t, err, text)
			require.True(t, want.Equal(got), "text %q: want %s got %s", text, want, got)
		}

		got, err := ParseBR(FormatBR(want))
		require.NoError(t, err)
		require.True(t, want.Equal(got))
	}
}
