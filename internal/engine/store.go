package engine

import (
	"context"
	"time"

	"github.com/fairwaylabs/teesheet/internal/model"
)

// Store is the persistence surface the engine needs. The repository
// package provides the MySQL implementation; tests use an in-memory
// fake.
type Store interface {
	// Event loads an event by id. Returns ErrNotFound when missing.
	Event(ctx context.Context, id int64) (*model.Event, error)

	// Registration loads a registration with its slots and player
	// details. Returns ErrNotFound when missing.
	Registration(ctx context.Context, id int64) (*model.RegistrationWithSlots, error)

	// RegistrationForPlayer loads the registration the player owns for
	// the event, with its slots, or nil when the player owns none.
	RegistrationForPlayer(ctx context.Context, eventID, playerID int64) (*model.RegistrationWithSlots, error)

	// SlotDetail loads a single slot with player and hole details.
	SlotDetail(ctx context.Context, id int64) (*model.SlotDetail, error)

	// InTx runs fn inside a database transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional slice of the store. All reads that feed a
// write decision go through row locks so that concurrent reservations
// serialize on the database.
type Tx interface {
	// LockSlots locks the given slots with SELECT ... FOR UPDATE,
	// ordered by ascending id. Returns only the rows that exist.
	LockSlots(ctx context.Context, eventID int64, slotIDs []int64) ([]model.Slot, error)

	// LockOccupiedSlots locks every occupied slot of the event,
	// ordered by ascending id.
	LockOccupiedSlots(ctx context.Context, eventID int64) ([]model.Slot, error)

	// RegistrationIDBySlotPlayer returns the registration id of a slot
	// already held by the player among the locked slots, or 0.
	RegistrationIDBySlotPlayer(ctx context.Context, eventID, playerID int64) (int64, error)

	// RegistrationByOwner returns the id of a registration owned by
	// the player for the event, or 0 when none exists.
	RegistrationByOwner(ctx context.Context, eventID, playerID int64) (int64, error)

	// CreateRegistration inserts a registration and returns its id.
	CreateRegistration(ctx context.Context, reg *model.Registration) (int64, error)

	// RefreshRegistration updates the course and expiry of a
	// registration being reused for a new slot selection.
	RefreshRegistration(ctx context.Context, regID int64, courseID *int64, expires time.Time) error

	// SetRegistrationNotes replaces the registration's notes text.
	SetRegistrationNotes(ctx context.Context, regID int64, notes string) error

	// DetachRegistrationOwner nulls the registration's owning player
	// and clears the player from all of its slots, leaving the slots'
	// status untouched. Used to orphan a stale registration.
	DetachRegistrationOwner(ctx context.Context, regID int64) error

	// DeleteRegistration removes the registration row.
	DeleteRegistration(ctx context.Context, regID int64) error

	// ClaimSlot marks a slot pending and links it to the registration
	// and, optionally, a player.
	ClaimSlot(ctx context.Context, slotID, regID int64, playerID *int64) error

	// SetSlotPlayer assigns a player to a slot already held by the
	// registration.
	SetSlotPlayer(ctx context.Context, slotID int64, playerID *int64) error

	// CreateSlot inserts a slot row and returns its id.
	CreateSlot(ctx context.Context, slot *model.Slot) (int64, error)

	// ReleaseSlots resets the slots to available and unlinks their
	// registration and player.
	ReleaseSlots(ctx context.Context, slotIDs []int64) error

	// DeleteSlots removes the slot rows.
	DeleteSlots(ctx context.Context, slotIDs []int64) error

	// DetachSlotFees unlinks fee rows from the registration's slots so
	// the slots can be released or deleted.
	DetachSlotFees(ctx context.Context, regID int64, slotIDs []int64) error
}

// Payments is the slice of the payment system the engine touches.
// Cancellation removes a pending payment before the reservation rows
// go away.
type Payments interface {
	DeletePaymentAndFees(ctx context.Context, paymentID int64) error
}

// Notifier receives change signals for live grid subscribers. The
// broadcast hub implements it.
type Notifier interface {
	NotifyChange(eventID int64)
}
