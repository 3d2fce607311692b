package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    NewBarrierConventionError("barrier convention check failed: 97.50% < 99%"),
			wantMessage: "[BARRIER_CONVENTION] barrier convention check failed: 97.50% < 99%",
		},
		{
			name:        "error with cause",
			appError:    NewParsingError("invalid return", fmt.Errorf("strconv: bad float")),
			wantMessage: "[PARSING] invalid return: strconv: bad float",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("write volatility frame", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, err.Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := (&AppError{Type: ErrTypeValidation, Message: "bad row"}).
		WithContext("ticker", "JPM").
		WithContext("year", 2020)

	assert.Equal(t, "JPM", err.Context["ticker"])
	assert.Equal(t, 2020, err.Context["year"])
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{name: "nil", err: nil, fatal: false},
		{name: "plain error", err: errors.New("x"), fatal: false},
		{name: "time integrity", err: NewTimeIntegrityError("lookahead", nil), fatal: true},
		{name: "barrier", err: NewBarrierConventionError("mismatch"), fatal: true},
		{name: "wrapped time integrity", err: fmt.Errorf("gate: %w", NewTimeIntegrityError("lookahead", nil)), fatal: true},
		{name: "parsing", err: NewParsingError("bad", nil), fatal: false},
		{name: "validation", err: NewValidationError("bad", nil), fatal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("stage: %w", NewNumericalError("round trip"))

	require.True(t, IsType(wrapped, ErrTypeNumerical))
	assert.Equal(t, ErrTypeNumerical, TypeOf(wrapped))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.False(t, IsType(nil, ErrTypeNumerical))
}
