package domain

import (
	"errors"
	"fmt"
)

// Query errors
var (
	ErrInvalidPageSize = errors.New("page size must be a positive integer")
	ErrInvalidPage     = errors.New("page must be a positive integer")
)

// ValidationError reports a missing or malformed field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s: field is required", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a lookup or mutation against an unknown record
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("shipment %s not found", e.ID)
}

// DuplicateTrackingIDError reports a tracking ID that is already issued
type DuplicateTrackingIDError struct {
	TrackingID string
}

func (e *DuplicateTrackingIDError) Error() string {
	return fmt.Sprintf("tracking id %s already exists", e.TrackingID)
}

// TransitionErrorKind distinguishes state machine rejections
type TransitionErrorKind string

const (
	TerminalStateViolation TransitionErrorKind = "TerminalStateViolation"
	IllegalTransition      TransitionErrorKind = "IllegalTransition"
)

// TransitionError is returned when a status change is rejected
type TransitionError struct {
	Kind      TransitionErrorKind
	Current   Status
	Attempted Status
}

func (e *TransitionError) Error() string {
	if e.Kind == TerminalStateViolation {
		return fmt.Sprintf("shipment is %s and cannot move to %s", e.Current, e.Attempted)
	}
	return fmt.Sprintf("transition from %s to %s is not allowed", e.Current, e.Attempted)
}

// ImportParseError reports a payload that could not be imported
type ImportParseError struct {
	Reason string
	Line   int
}

func (e *ImportParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("import failed at line %d: %s", e.Line, e.Reason)
	}
	return "import failed: " + e.Reason
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransitionError reports whether err wraps a TransitionError of the given kind
func IsTransitionError(err error, kind TransitionErrorKind) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Kind == kind
}
