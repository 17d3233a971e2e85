package model

import (
	"sort"
	"time"
)

// Registration groups the slots claimed together in one signup.  The
// owning player is nullable: a stale unpaid registration is detached
// from its owner when the player starts over, and the cleanup sweeper
// reclaims the orphan later.  Expires is nullable for the same reason --
// a nil expiry means the registration is no longer time-boxed by the
// reservation timer (payment has begun).
type Registration struct {
	ID         int64      `json:"id"`
	EventID    int64      `json:"eventId"`
	CourseID   *int64     `json:"courseId"`
	PlayerID   *int64     `json:"playerId"`
	SignedUpBy string     `json:"signedUpBy"`
	Expires    *time.Time `json:"expires"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"createdDate"`
}

// RegistrationWithSlots is a registration hydrated with its group.
// All slots belong to the registration's event.
type RegistrationWithSlots struct {
	Registration
	Slots []SlotDetail `json:"slots"`
}

// HasPlayer reports whether the given player holds a slot in this group.
func (r *RegistrationWithSlots) HasPlayer(playerID int64) bool {
	for _, s := range r.Slots {
		if s.PlayerID != nil && *s.PlayerID == playerID {
			return true
		}
	}
	return false
}

// EmptySlots returns the group's unassigned slots ordered by slot
// number, lowest first.  Players added to the group fill these in order.
func (r *RegistrationWithSlots) EmptySlots() []SlotDetail {
	var empty []SlotDetail
	for _, s := range r.Slots {
		if s.PlayerID == nil {
			empty = append(empty, s)
		}
	}
	sort.Slice(empty, func(i, j int) bool { return empty[i].SlotNumber < empty[j].SlotNumber })
	return empty
}

// SlotIDs returns the ids of every slot in the group.
func (r *RegistrationWithSlots) SlotIDs() []int64 {
	ids := make([]int64, 0, len(r.Slots))
	for _, s := range r.Slots {
		ids = append(ids, s.ID)
	}
	return ids
}

// ExpiredRegistration is the sweeper's view of an abandoned
// registration: just enough to release its slots and delete it.
type ExpiredRegistration struct {
	ID        int64
	EventID   int64
	Choosable bool
	SlotIDs   []int64
}
