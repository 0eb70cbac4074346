package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeStaleReference is used when an operation targets an invoice
	// that is no longer tracked
	ErrCodeStaleReference = "ERR_STALE_REFERENCE"
)

// Settlement business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeNonPositiveAmount is used when a payment amount is zero or negative
	ErrCodeNonPositiveAmount = "ERR_NON_POSITIVE_AMOUNT"
	// ErrCodeNothingDue is used when a payment targets a settled currency
	ErrCodeNothingDue = "ERR_NOTHING_DUE"
	// ErrCodeExceedsRemaining is used when a payment exceeds the open balance
	ErrCodeExceedsRemaining = "ERR_EXCEEDS_REMAINING"
	// ErrCodeInvalidRate is used when the exchange rate is missing or not positive
	ErrCodeInvalidRate = "ERR_INVALID_RATE"
)

// Infrastructure error codes
const (
	// ErrCodeRepositoryFailure is used when a storage operation fails
	ErrCodeRepositoryFailure = "ERR_REPOSITORY_FAILURE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeStaleReference:      http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeNonPositiveAmount: http.StatusUnprocessableEntity,
	ErrCodeNothingDue:        http.StatusUnprocessableEntity,
	ErrCodeExceedsRemaining:  http.StatusUnprocessableEntity,
	ErrCodeInvalidRate:       http.StatusUnprocessableEntity,

	// Infrastructure errors
	ErrCodeRepositoryFailure: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the API format
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_CURRENCY":       ErrCodeInvalidInput,
	"INVALID_QUANTITY":       ErrCodeInvalidInput,
	"INVALID_UNIT_PRICE":     ErrCodeInvalidInput,
	"INVALID_PRODUCT_NAME":   ErrCodeInvalidInput,
	"INVALID_AMOUNT_INPUT":   ErrCodeInvalidInput,
	"INVALID_INVOICE":        ErrCodeInvalidInput,
	"INVALID_INVOICE_NUMBER": ErrCodeInvalidInput,
	"INVALID_REDUCTION":      ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"STALE_REFERENCE":        ErrCodeStaleReference,
	"NON_POSITIVE_AMOUNT":    ErrCodeNonPositiveAmount,
	"NOTHING_DUE":            ErrCodeNothingDue,
	"EXCEEDS_REMAINING":      ErrCodeExceedsRemaining,
	"INVALID_RATE":           ErrCodeInvalidRate,
	"REPOSITORY_FAILURE":     ErrCodeRepositoryFailure,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
