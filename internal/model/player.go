package model

// Player identifies a club member (or guest) who can hold a slot.
type Player struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	IsMember  bool   `json:"isMember"`
}

// Name returns the player's display name used in registration notes.
func (p *Player) Name() string {
	return p.FirstName + " " + p.LastName
}
