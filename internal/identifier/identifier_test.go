package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "masked", raw: "11.444.777/0001-61", want: "11444777000161", wantOK: true},
		{name: "short is padded", raw: "191", want: "00000000000191", wantOK: true},
		{name: "already normal", raw: "11111111111111", want: "11111111111111", wantOK: true},
		{name: "too long", raw: "123456789012345", wantOK: false},
		{name: "no digits", raw: "n/a", wantOK: false},
		{name: "empty", raw: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "reference identifier", id: "11444777000161", want: true},
		{name: "second reference", id: "11222333000181", want: true},
		{name: "first check digit zero", id: "00000000000191", want: true},
		{name: "repeated digits", id: "11111111111111", want: false},
		{name: "all zeros", id: "00000000000000", want: false},
		{name: "wrong second digit", id: "11444777000162", want: false},
		{name: "wrong first digit", id: "11444777000151", want: false},
		{name: "too short", id: "1144477700016", want: false},
		{name: "non digit", id: "1144477700016X", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.id))
		})
	}
}

func TestSingleDigitFlipsAreDetected(t *testing.T) {
	const valid = "11444777000161"
	accepted := 0
	for pos := 0; pos < Length; pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if valid[pos] == d {
				continue
			}
			mutated := valid[:pos] + string(d) + valid[pos+1:]
			if Validate(mutated) {
				accepted++
			}
		}
	}
	// mod-11 catches every single-digit substitution in the check range
	assert.Equal(t, 0, accepted)
}

func TestNormalizeValid(t *testing.T) {
	id, ok := NormalizeValid("11.444.777/0001-61")
	assert.True(t, ok)
	assert.Equal(t, "11444777000161", id)

	id, ok = NormalizeValid("11111111111111")
	assert.False(t, ok)
	assert.Equal(t, "11111111111111", id)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "11.444.777/0001-61", Format("11444777000161"))
	assert.Equal(t, "123", Format("123"))
}
