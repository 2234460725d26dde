/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps them to status codes with the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - caught before any write, nothing mutated
  2. Authorization errors - scope does not allow the action
  3. Store errors - backend rejected the write (constraint, permission)

USAGE:
  if errors.Is(err, billing.ErrNotFound) {
      // 404
  }

SEE ALSO:
  - materialize.go: wraps store failures in MaterializeError
  - api/handlers.go: maps errors to HTTP status codes
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a row does not exist inside the caller's building.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidMonth is returned for months that cannot be parsed or are out of range.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrForbidden is returned when the scope's role may not perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrScopeRequired is returned when an operation is called without a building.
	ErrScopeRequired = errors.New("building scope required")

	// ErrDuplicatePayment is returned when a (tenant, month) payment already exists.
	ErrDuplicatePayment = errors.New("payment already exists for tenant and month")

	// ErrInviteExpired is returned when redeeming an invite past its expiry.
	ErrInviteExpired = errors.New("invite expired")

	// ErrInviteRedeemed is returned when an invite was already used.
	ErrInviteRedeemed = errors.New("invite already redeemed")

	// ErrInviteSecret is returned when the invite code does not match.
	ErrInviteSecret = errors.New("invite code mismatch")

	// ErrStoreRequired is returned when an operation requires a specific store capability.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a field validation error.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// MaterializeError reports a failed monthly payment run. No partial counts
// are exposed; the whole month should be retried.
type MaterializeError struct {
	BuildingID BuildingID
	Month      Month
	Err        error
}

func (e *MaterializeError) Error() string {
	return fmt.Sprintf("materialize payments for building %s month %s: %v", e.BuildingID, e.Month, e.Err)
}

func (e *MaterializeError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrScopeRequired) ||
		errors.Is(err, ErrInviteExpired) ||
		errors.Is(err, ErrInviteSecret)
}

// IsConflict returns true if the error reports an existing row or a used invite.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicatePayment) || errors.Is(err, ErrInviteRedeemed)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
