package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantMsg  string
	}{
		{
			name:     "storage error with cause",
			err:      NewStorageError("write ledger", cause),
			wantType: ErrTypeStorage,
			wantMsg:  "[STORAGE] write ledger: disk full",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("operator"),
			wantType: ErrTypeNotFound,
			wantMsg:  "[NOT_FOUND] operator not found",
		},
		{
			name:     "validation",
			err:      NewAppValidationError("bad page"),
			wantType: ErrTypeValidation,
			wantMsg:  "[VALIDATION] bad page",
		},
		{
			name:     "structural",
			err:      NewStructuralError("despesas_1T2024.csv", "REG_ANS"),
			wantType: ErrTypeStructural,
			wantMsg:  "[STRUCTURAL] despesas_1T2024.csv is missing required columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestAppErrorUnwrapAndIsType(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("fetch listing: %w", NewNetworkError("GET failed", cause))

	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsType(err, ErrTypeNetwork))
	assert.False(t, IsType(err, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeNetwork))
}

func TestStructuralErrorContext(t *testing.T) {
	err := NewStructuralError("ledger.csv", "REG_ANS", "ValorDespesas")
	assert.Equal(t, "ledger.csv", err.Context["artifact"])
	assert.Equal(t, []string{"REG_ANS", "ValorDespesas"}, err.Context["missing"])
}
