package model

// SlotStatus is the single-letter status code stored on a registration
// slot row.  The letters match the store's historical values, so they
// appear verbatim in persisted rows and in live-update payloads.
type SlotStatus string

const (
	// SlotAvailable marks an unowned slot open for claim.
	SlotAvailable SlotStatus = "A"
	// SlotPending marks a slot claimed by a registration whose player
	// assignment or fee selection is still in flux.
	SlotPending SlotStatus = "P"
	// SlotAwaitingPayment marks a slot whose registration has started a
	// payment; the registration's expiry is cleared at that point.
	SlotAwaitingPayment SlotStatus = "X"
	// SlotReserved is the terminal success state.
	SlotReserved SlotStatus = "R"
)

// Occupied reports whether the slot counts against event capacity.
func (s SlotStatus) Occupied() bool {
	return s == SlotPending || s == SlotAwaitingPayment || s == SlotReserved
}

// Slot is the atomic unit of reservable capacity.  A slot with any
// status other than available must reference its owning registration;
// a slot with a player must be pending, awaiting payment or reserved.
type Slot struct {
	ID             int64      `json:"id"`
	EventID        int64      `json:"eventId"`
	RegistrationID *int64     `json:"registrationId"`
	PlayerID       *int64     `json:"playerId"`
	HoleID         *int64     `json:"holeId"`
	SlotNumber     int        `json:"slot"`
	StartingOrder  int        `json:"startingOrder"`
	Status         SlotStatus `json:"status"`
}

// SlotDetail is a slot enriched with the joined player and hole rows,
// as needed for snapshot assembly and group validation.
type SlotDetail struct {
	Slot
	Player     *Player `json:"player"`
	HoleNumber *int    `json:"holeNumber,omitempty"`
}
