package booking

import (
	"fmt"

	"tourbook/models"
)

// ValidationError rejects malformed input before any state mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// InvalidTransitionError signals that the requested event does not apply to
// the booking's current state. The "already in target state" case is not an
// error; callers get a successful no-op instead.
type InvalidTransitionError struct {
	BookingID string
	From      models.BookingStatus
	Event     string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("booking %s: event %s not valid from state %s", e.BookingID, e.Event, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ForbiddenError signals that the actor lacks the role a transition requires.
type ForbiddenError struct {
	Role  models.ActorRole
	Event string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not perform %s", e.Role, e.Event)
}
