// Package queue defines message payloads exchanged over the message
// broker and the background consumer that records them.
package queue

// Activity actions published on the registration activity queue.
const (
	ActionReserved  = "reserved"
	ActionAdded     = "players_added"
	ActionDropped   = "players_dropped"
	ActionCancelled = "cancelled"
)

// RegistrationActivityEvent is published after a reservation mutation
// commits. It carries enough for downstream consumers to log or notify
// without querying the primary database.
type RegistrationActivityEvent struct {
	MessageID      string  `json:"message_id"`
	Action         string  `json:"action"`
	EventID        int64   `json:"event_id"`
	EventName      string  `json:"event_name"`
	RegistrationID int64   `json:"registration_id"`
	PlayerID       int64   `json:"player_id"`
	SlotCount      int     `json:"slot_count"`
	SlotIDs        []int64 `json:"slot_ids,omitempty"`
	OccurredAt     string  `json:"occurred_at"`
}
