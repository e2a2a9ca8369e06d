package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Reason classifies a validation failure.
type Reason string

// Validation reasons surfaced to callers.
const (
	ReasonIneligibleAge        Reason = "ineligible-age"
	ReasonIneligibleGender     Reason = "ineligible-gender"
	ReasonMeetMismatch         Reason = "meet-mismatch"
	ReasonWrongRosterSize      Reason = "wrong-roster-size"
	ReasonBadPlacementSequence Reason = "bad-placement-sequence"
	ReasonDuplicateSwimmer     Reason = "duplicate-swimmer"
	ReasonWrongEventKind       Reason = "wrong-event-kind"
	ReasonInvalidField         Reason = "invalid-field"
	ReasonInvalidPolicy        Reason = "invalid-policy"
	ReasonEntriesExist         Reason = "entries-exist"
)

// ValidationError reports a malformed field, an eligibility mismatch or a bad
// roster shape. It is never retried.
type ValidationError struct {
	Reason  Reason
	Entity  EntityType
	Message string
}

func (e ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Entity, e.Reason, e.Message)
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(entity EntityType, reason Reason, format string, args ...any) ValidationError {
	return ValidationError{Reason: reason, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// ConflictError is returned when a candidate matches existing records and the
// caller did not choose a duplicate policy that resolves it.
type ConflictError struct {
	Entity EntityType
	IDs    []string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s duplicates existing record(s) %s", e.Entity, strings.Join(e.IDs, ", "))
}

// AuthorizationError is returned when the caller may not read or mutate a meet.
type AuthorizationError struct {
	Anonymous bool
	MeetID    string
}

func (e AuthorizationError) Error() string {
	if e.Anonymous {
		return "authentication required"
	}
	return fmt.Sprintf("caller is not the host of meet %s", e.MeetID)
}

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IntegrityError reports that an invariant could not be restored. The
// enclosing transaction is rolled back; Retryable failures may be retried as
// a whole.
type IntegrityError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e IntegrityError) Error() string {
	return fmt.Sprintf("integrity failure in %s: %v", e.Op, e.Err)
}

func (e IntegrityError) Unwrap() error { return e.Err }

// Status codes mirror the HTTP-equivalent convention used at the boundary.
const (
	StatusOK              = 200
	StatusBadRequest      = 400
	StatusUnauthenticated = 401
	StatusForbidden       = 403
	StatusNotFound        = 404
	StatusConflict        = 409
	StatusInternal        = 500
)

// StatusCode maps an error from the engine to its boundary status code.
func StatusCode(err error) int {
	if err == nil {
		return StatusOK
	}
	var (
		validation ValidationError
		conflict   ConflictError
		auth       AuthorizationError
		notFound   ErrNotFound
	)
	switch {
	case errors.As(err, &validation):
		return StatusBadRequest
	case errors.As(err, &conflict):
		return StatusConflict
	case errors.As(err, &auth):
		if auth.Anonymous {
			return StatusUnauthenticated
		}
		return StatusForbidden
	case errors.As(err, &notFound):
		return StatusNotFound
	default:
		return StatusInternal
	}
}
