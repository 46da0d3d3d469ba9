package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so sentinel errors match
// any DomainError built with that code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Taxonomy codes
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
)

// Refined codes. Each belongs to exactly one taxonomy category.
const (
	CodeItemNotFound            = "ITEM_NOT_FOUND"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidPrice            = "INVALID_PRICE"
	CodeInvalidDiscount         = "INVALID_DISCOUNT"
	CodeReceiveQuantityExceeded = "RECEIVE_QUANTITY_EXCEEDED"
	CodeValidationFailed        = "VALIDATION_FAILED"
)

var categories = map[string]string{
	CodeInvalidInput:            CodeInvalidInput,
	CodeInvalidState:            CodeInvalidState,
	CodeInvalidTransition:       CodeInvalidTransition,
	CodeConcurrencyConflict:     CodeConcurrencyConflict,
	CodeNotFound:                CodeNotFound,
	CodeItemNotFound:            CodeNotFound,
	CodeInvalidQuantity:         CodeInvalidInput,
	CodeInvalidPrice:            CodeInvalidInput,
	CodeInvalidDiscount:         CodeInvalidInput,
	CodeReceiveQuantityExceeded: CodeInvalidInput,
	CodeValidationFailed:        CodeInvalidInput,
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Status transition not allowed")
)

// Category returns the taxonomy category of err, or "" when err is not a DomainError.
func Category(err error) string {
	var de *DomainError
	if !errors.As(err, &de) {
		return ""
	}
	if c, ok := categories[de.Code]; ok {
		return c
	}
	return de.Code
}

// IsCode reports whether err is a DomainError with the given code or category.
func IsCode(err error, code string) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code || Category(err) == code
}
