/*
errors.go - Centralized error types for the holiday engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on these with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, rejected before persistence
  2. State transition errors - Illegal lifecycle moves, record unchanged
  3. Not-found errors - Missing staff/year/request, distinct from validation
     so callers can branch on create-vs-update

NOTE ON OVERLAPS:
  A booking overlap on approval is NOT an error. It is a warning-level
  condition surfaced in TransitionResult so the calling workflow can decide
  to block or proceed. See booking.go.

SEE ALSO:
  - booking.go: Transition table that raises StateTransitionError
  - overlap.go: Conflict detection
*/
package holiday

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of all validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIllegalTransition is the root of all state machine violations.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrRoleUnresolved is returned when no resolver in the chain can
	// classify a staff member's role.
	ErrRoleUnresolved = errors.New("role could not be resolved")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed input. Always recoverable by the caller
// correcting the input; nothing is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// StateTransitionError reports an illegal lifecycle move. The record is
// left unchanged; Current tells the caller the valid state to branch on.
type StateTransitionError struct {
	RequestID RequestID
	Current   Status
	Attempted Status
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("request %s: cannot move from %s to %s", e.RequestID, e.Current, e.Attempted)
}

func (e *StateTransitionError) Unwrap() error { return ErrIllegalTransition }

// NotFoundError identifies which record was missing.
type NotFoundError struct {
	Kind string // "staff", "pattern", "entitlement", "booking"
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrIllegalTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
