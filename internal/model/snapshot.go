package model

import "time"

// WaveInfo describes when a slot becomes claimable during the priority
// signup phase.  It is derived, never persisted.
type WaveInfo struct {
	Wave   int       `json:"wave"`
	IsOpen bool      `json:"isOpen"`
	Opens  time.Time `json:"opens"`
}

// SlotView is one slot as pushed to live subscribers and returned by
// the authoritative grid fetch.  Wave is omitted for events without a
// configured priority phase.
type SlotView struct {
	ID             int64      `json:"id"`
	EventID        int64      `json:"eventId"`
	RegistrationID *int64     `json:"registrationId"`
	HoleID         *int64     `json:"holeId"`
	HoleNumber     *int       `json:"holeNumber,omitempty"`
	Player         *Player    `json:"player"`
	SlotNumber     int        `json:"slot"`
	StartingOrder  int        `json:"startingOrder"`
	Status         SlotStatus `json:"status"`
	Wave           *WaveInfo  `json:"wave,omitempty"`
}
