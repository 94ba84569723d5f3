package domain

import "errors"

// Domain errors
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionClosed    = errors.New("session closed")
	ErrSlotOutOfRange   = errors.New("slot index out of range")
	ErrSlotBusy         = errors.New("slot is not accepting this action in its current state")
	ErrTitleFrozen      = errors.New("combined title is frozen once combine has been issued")
	ErrInvalidSlotCount = errors.New("invalid slot count")
	ErrTooManySessions  = errors.New("too many active sessions")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
