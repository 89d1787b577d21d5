package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a workflow entity does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when an entity was modified after it was loaded.
	// Callers re-load and re-evaluate; it is the only retryable error.
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation is returned for malformed input
	ErrValidation = errors.New("validation failed")

	// ErrIllegalTransition is returned when no edge exists from the current to the requested status
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrForbiddenRole is returned when the edge exists but the actor's role may not use it
	ErrForbiddenRole = errors.New("forbidden role")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// DenyReason is the machine-readable cause of a denied transition
type DenyReason string

const (
	ReasonIllegalTransition DenyReason = "ILLEGAL_TRANSITION"
	ReasonForbiddenRole     DenyReason = "FORBIDDEN_ROLE"
	ReasonGuardFailed       DenyReason = "GUARD_FAILED"
)

// Guard names shared between the machines and the workflow services
const (
	GuardMinimumProducts    = "minimumProductsUploaded"
	GuardTrackableStatus    = "trackableStatus"
	GuardTrackingAlreadySet = "trackingAlreadySet"
)

// guardCodes maps guard names to the codes callers render messages from
var guardCodes = map[string]string{
	GuardMinimumProducts:    "INSUFFICIENT_PRODUCTS",
	GuardTrackableStatus:    "INVALID_STATE_FOR_TRACKING",
	GuardTrackingAlreadySet: "TRACKING_ALREADY_SET",
}

// DenyError reports a transition that was refused by the machine or by a guard
type DenyError struct {
	Kind   Kind
	From   Status
	To     Status
	Reason DenyReason
	Guard  string
}

// Error implements error
func (e *DenyError) Error() string {
	if e.Reason == ReasonGuardFailed {
		return fmt.Sprintf("%s %s -> %s denied: %s: %s", e.Kind, e.From, e.To, e.Reason, e.Guard)
	}
	return fmt.Sprintf("%s %s -> %s denied: %s", e.Kind, e.From, e.To, e.Reason)
}

// Unwrap maps the reason onto its sentinel so errors.Is works
func (e *DenyError) Unwrap() error {
	switch e.Reason {
	case ReasonIllegalTransition:
		return ErrIllegalTransition
	case ReasonForbiddenRole:
		return ErrForbiddenRole
	default:
		return ErrGuardFailed
	}
}

// Code returns the most specific reason code for the denial
func (e *DenyError) Code() string {
	if e.Reason == ReasonGuardFailed {
		if code, ok := guardCodes[e.Guard]; ok {
			return code
		}
	}
	return string(e.Reason)
}

// ValidationError reports malformed input on a single field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements error
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap returns ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsRetryable returns true if the caller should re-load and retry the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// AsDeny extracts a DenyError from an error chain
func AsDeny(err error) (*DenyError, bool) {
	var deny *DenyError
	if errors.As(err, &deny) {
		return deny, true
	}
	return nil, false
}
