package model

import "errors"

var (
	// ErrNotFound is returned when an operation references an unknown event id.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidDrop means a drag ended outside any time slot.
	ErrInvalidDrop = errors.New("drop outside a valid time slot")
	// ErrMonthDrag is returned when a drag is attempted in a view without slots.
	ErrMonthDrag = errors.New("drag and drop is not available in month view")
	// ErrNotDragging is returned by drop/over calls made while idle.
	ErrNotDragging = errors.New("no drag in progress")
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError rejects a save; the editor stays open and shows Message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
