package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"taxonomy code maps to itself", NewDomainError(CodeInvalidTransition, "x"), CodeInvalidTransition},
		{"item not found is a not found", NewDomainError(CodeItemNotFound, "x"), CodeNotFound},
		{"quantity errors are invalid input", NewDomainError(CodeInvalidQuantity, "x"), CodeInvalidInput},
		{"receive overflow is invalid input", NewDomainError(CodeReceiveQuantityExceeded, "x"), CodeInvalidInput},
		{"wrapped domain error", fmt.Errorf("save: %w", ErrConcurrencyConflict), CodeConcurrencyConflict},
		{"unknown code passes through", NewDomainError("SOMETHING_ELSE", "x"), "SOMETHING_ELSE"},
		{"plain error", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Category(tt.err))
		})
	}
}

func TestIsCode(t *testing.T) {
	err := NewDomainError(CodeInvalidDiscount, "discount must be between 0 and 100")
	assert.True(t, IsCode(err, CodeInvalidDiscount))
	assert.True(t, IsCode(err, CodeInvalidInput))
	assert.False(t, IsCode(err, CodeInvalidState))
	assert.False(t, IsCode(errors.New("plain"), CodeInvalidInput))
}

func TestDomainError_Is(t *testing.T) {
	err := fmt.Errorf("load order: %w", NewDomainError(CodeNotFound, "purchase order not found"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidState)
}
