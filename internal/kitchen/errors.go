package kitchen

import "errors"

var (
	// ErrDuplicateID is returned when a ticket id is already open or was
	// closed within the dedupe window.
	ErrDuplicateID = errors.New("duplicate ticket id")
	// ErrNotFound is returned when a ticket is not open.
	ErrNotFound = errors.New("ticket not found")
	// ErrQueueFull is returned when the queue already holds its maximum of
	// open tickets.
	ErrQueueFull = errors.New("ticket queue is full")
	// ErrInvalidTicket marks a caller bug: no items, or non-positive
	// quantity or preparation time.
	ErrInvalidTicket = errors.New("invalid ticket")
	// ErrClockSkew accompanies an evaluation made before the ticket's
	// creation time. The evaluation itself is still usable.
	ErrClockSkew = errors.New("evaluation time precedes ticket creation")
)
