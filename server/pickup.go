package main

// Pickup is a weapon crate lying in the arena. X, Y is its centre.
type Pickup struct {
	X, Y   float64
	Weapon WeaponKind
	Alive  bool
}

// NewPickup creates a pickup granting weapon
func NewPickup(x, y float64, weapon WeaponKind) *Pickup {
	return &Pickup{X: x, Y: y, Weapon: weapon, Alive: true}
}

// Hitbox returns the pickup rect
func (p *Pickup) Hitbox(size float64) Rect {
	return RectAt(p.X, p.Y, size, size)
}

// ToState converts to protocol state
func (p *Pickup) ToState() PickupState {
	return PickupState{
		X:      p.X,
		Y:      p.Y,
		Weapon: p.Weapon,
	}
}
