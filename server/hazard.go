package main

// Hazard is a trap placed by a player. It hurts the first other player to
// drive over it. X, Y is its centre.
type Hazard struct {
	X, Y    float64
	OwnerID int
	Alive   bool
}

// NewHazard creates a hazard at the given position
func NewHazard(x, y float64, ownerID int) *Hazard {
	return &Hazard{X: x, Y: y, OwnerID: ownerID, Alive: true}
}

// Hitbox returns the hazard rect
func (h *Hazard) Hitbox(size float64) Rect {
	return RectAt(h.X, h.Y, size, size)
}

// ToState converts to protocol state
func (h *Hazard) ToState() HazardState {
	return HazardState{
		X:     h.X,
		Y:     h.Y,
		Owner: h.OwnerID,
	}
}
