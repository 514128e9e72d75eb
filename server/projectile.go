package main

import "math"

// Projectile is a shell in flight. X, Y is its centre.
type Projectile struct {
	X, Y    float64
	VX, VY  float64
	OwnerID int
	Damage  int
	Bounces int // remaining wall reflections
	Alive   bool
}

// NewProjectile creates a projectile at (x, y) heading angleDeg
func NewProjectile(ownerID int, x, y, angleDeg float64, def WeaponDef) *Projectile {
	rad := angleDeg * math.Pi / 180
	return &Projectile{
		X:       x,
		Y:       y,
		VX:      def.Speed * math.Cos(rad),
		VY:      def.Speed * math.Sin(rad),
		OwnerID: ownerID,
		Damage:  def.Damage,
		Bounces: def.Bounces,
		Alive:   true,
	}
}

// Hitbox returns the projectile rect
func (p *Projectile) Hitbox(size float64) Rect {
	return RectAt(p.X, p.Y, size, size)
}

// Update moves the projectile one tick. blocked reports whether a centre
// position is off the arena or inside an obstacle. A blocked move discards the
// projectile unless it has bounces left, in which case the blocked axis (both
// when neither axis alone is blocked) is reflected and the reflected move is
// tried once.
func (p *Projectile) Update(blocked func(x, y float64) bool) {
	if !p.Alive {
		return
	}
	nx, ny := p.X+p.VX, p.Y+p.VY
	if !blocked(nx, ny) {
		p.X, p.Y = nx, ny
		return
	}
	if p.Bounces <= 0 {
		p.Alive = false
		return
	}

	hitX := blocked(p.X+p.VX, p.Y)
	hitY := blocked(p.X, p.Y+p.VY)
	switch {
	case hitX && !hitY:
		p.VX = -p.VX
	case hitY && !hitX:
		p.VY = -p.VY
	default:
		p.VX = -p.VX
		p.VY = -p.VY
	}
	p.Bounces--

	nx, ny = p.X+p.VX, p.Y+p.VY
	if blocked(nx, ny) {
		p.Alive = false
		return
	}
	p.X, p.Y = nx, ny
}

// ToState converts to protocol state
func (p *Projectile) ToState() ProjectileState {
	return ProjectileState{
		X:     p.X,
		Y:     p.Y,
		Owner: p.OwnerID,
	}
}
