package billing

import "github.com/restopos/backend/internal/domain/shared"

// Settlement error taxonomy. Validation errors are local: they are raised
// before any repository call and never leave partial state behind.
var (
	// ErrNonPositiveAmount is returned when a payment amount is zero or negative
	ErrNonPositiveAmount = shared.NewDomainError("NON_POSITIVE_AMOUNT", "Payment amount must be positive")

	// ErrNothingDue is returned when a payment targets a currency with no outstanding balance
	ErrNothingDue = shared.NewDomainError("NOTHING_DUE", "Nothing is due in this currency")

	// ErrExceedsRemaining is returned when a payment exceeds the remaining balance beyond tolerance
	ErrExceedsRemaining = shared.NewDomainError("EXCEEDS_REMAINING", "Payment amount exceeds the remaining balance")

	// ErrInvalidRate is returned when the exchange rate is not strictly positive
	ErrInvalidRate = shared.NewDomainError("INVALID_RATE", "Exchange rate must be positive")

	// ErrRepositoryFailure wraps any failed create/update/delete/fetch against a repository
	ErrRepositoryFailure = shared.NewDomainError("REPOSITORY_FAILURE", "Repository operation failed")

	// ErrStaleReference marks a commit targeting an invoice no longer present locally.
	// Callers treat it as a no-op, not a failure.
	ErrStaleReference = shared.NewDomainError("STALE_REFERENCE", "Invoice is no longer tracked locally")
)
