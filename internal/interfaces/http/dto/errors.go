package dto

import (
	"net/http"

	"github.com/opsdash/purchasing/internal/domain/shared"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeNotFound   = "ERR_NOT_FOUND"
	ErrCodeTooLarge   = "ERR_REQUEST_TOO_LARGE"

	ErrCodeInvalidInput         = "ERR_INVALID_INPUT"
	ErrCodeInvalidState         = "ERR_INVALID_STATE"
	ErrCodeInvalidTransition    = "ERR_INVALID_TRANSITION"
	ErrCodeConcurrencyConflict  = "ERR_CONCURRENCY_CONFLICT"
	ErrCodePreconditionRequired = "ERR_PRECONDITION_REQUIRED"

	ErrCodeItemNotFound            = "ERR_ITEM_NOT_FOUND"
	ErrCodeInvalidQuantity         = "ERR_INVALID_QUANTITY"
	ErrCodeInvalidPrice            = "ERR_INVALID_PRICE"
	ErrCodeInvalidDiscount         = "ERR_INVALID_DISCOUNT"
	ErrCodeReceiveQuantityExceeded = "ERR_RECEIVE_QUANTITY_EXCEEDED"
	ErrCodeValidationFailed        = "ERR_VALIDATION_FAILED"
)

// domainCodes maps domain error codes to API error codes
var domainCodes = map[string]string{
	shared.CodeInvalidInput:            ErrCodeInvalidInput,
	shared.CodeInvalidState:            ErrCodeInvalidState,
	shared.CodeInvalidTransition:       ErrCodeInvalidTransition,
	shared.CodeConcurrencyConflict:     ErrCodeConcurrencyConflict,
	shared.CodeNotFound:                ErrCodeNotFound,
	shared.CodeItemNotFound:            ErrCodeItemNotFound,
	shared.CodeInvalidQuantity:         ErrCodeInvalidQuantity,
	shared.CodeInvalidPrice:            ErrCodeInvalidPrice,
	shared.CodeInvalidDiscount:         ErrCodeInvalidDiscount,
	shared.CodeReceiveQuantityExceeded: ErrCodeReceiveQuantityExceeded,
	shared.CodeValidationFailed:        ErrCodeValidationFailed,
}

// categoryStatus maps a taxonomy category to its HTTP status
var categoryStatus = map[string]int{
	shared.CodeInvalidInput:        http.StatusBadRequest,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeInvalidState:        http.StatusUnprocessableEntity,
	shared.CodeInvalidTransition:   http.StatusUnprocessableEntity,
}

// ErrorCodeHTTPStatus maps API error codes that do not come from the domain
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:             http.StatusInternalServerError,
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeValidation:           http.StatusBadRequest,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeTooLarge:             http.StatusRequestEntityTooLarge,
	ErrCodePreconditionRequired: http.StatusPreconditionRequired,
}

// GetHTTPStatus returns the HTTP status for an API error code, or 500
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromDomainCode returns the API code and HTTP status for a domain error.
// Unknown codes fall back to their category, and then to 500.
func FromDomainCode(err *shared.DomainError) (string, int) {
	code, ok := domainCodes[err.Code]
	if !ok {
		code = "ERR_" + err.Code
	}
	if status, ok := categoryStatus[shared.Category(err)]; ok {
		return code, status
	}
	return code, http.StatusInternalServerError
}
