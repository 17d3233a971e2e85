package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by engine operations. Handlers translate
// these into HTTP responses via Classify.
var (
	// ErrSlotConflict is returned when a requested slot is no longer
	// available at lock time. The caller should refetch the grid and
	// pick again.
	ErrSlotConflict = errors.New("slot no longer available")

	// ErrEventFull is returned when a non-choosable reservation would
	// push the event past its registration maximum.
	ErrEventFull = errors.New("event is full")

	// ErrRegistrationNotOpen is returned when the event's registration
	// window is not open at the time of the request.
	ErrRegistrationNotOpen = errors.New("registration is not open")

	// ErrCourseRequired is returned when a multi-course event is
	// reserved without a course selection.
	ErrCourseRequired = errors.New("course selection required")

	// ErrNotGroupMember is returned when a player tries to modify a
	// registration whose group they do not belong to.
	ErrNotGroupMember = errors.New("player is not part of this registration")

	// ErrNoSlotsRequested is returned when a choosable reservation
	// names no slots.
	ErrNoSlotsRequested = errors.New("no slots requested")

	// ErrNotFound is returned when a referenced event, registration or
	// slot does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlotsNotInRegistration is returned when a drop names slots
	// outside the registration.
	ErrSlotsNotInRegistration = errors.New("slots do not belong to this registration")

	// ErrSlotsNotDroppable is returned when a drop would leave the
	// registration without its owner's slot.
	ErrSlotsNotDroppable = errors.New("slots cannot be dropped")
)

// WaveNotOpenError is returned when a requested slot's priority wave
// has not opened yet.
type WaveNotOpenError struct {
	Wave int
}

func (e *WaveNotOpenError) Error() string {
	return fmt.Sprintf("wave %d is not open yet", e.Wave)
}

// AlreadyRegisteredError is returned when a player who already holds a
// registration for the event tries to reserve again.
type AlreadyRegisteredError struct {
	PlayerID int64
	EventID  int64
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("player %d is already registered for event %d", e.PlayerID, e.EventID)
}

// SlotOverflowError is returned when a group add names more players
// than the registration has empty slots.
type SlotOverflowError struct {
	Requested int
	Open      int
}

func (e *SlotOverflowError) Error() string {
	return fmt.Sprintf("%d players requested but only %d open slots", e.Requested, e.Open)
}

// Kind buckets engine errors for HTTP translation.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindWindow
	KindValidation
	KindNotFound
)

// Classify maps an engine error to its Kind. Unknown errors are
// KindInternal.
func Classify(err error) Kind {
	var waveErr *WaveNotOpenError
	var regErr *AlreadyRegisteredError
	var overflowErr *SlotOverflowError
	switch {
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrEventFull),
		errors.As(err, &regErr):
		return KindConflict
	case errors.Is(err, ErrRegistrationNotOpen),
		errors.As(err, &waveErr):
		return KindWindow
	case errors.Is(err, ErrCourseRequired),
		errors.Is(err, ErrNotGroupMember),
		errors.Is(err, ErrNoSlotsRequested),
		errors.Is(err, ErrSlotsNotInRegistration),
		errors.Is(err, ErrSlotsNotDroppable),
		errors.As(err, &overflowErr):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
