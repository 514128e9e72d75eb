package main

import (
	"math"
	"time"
)

// Direction is one of the four cardinal facings
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Angle returns the facing in degrees; screen y grows downward so up is 270
func (d Direction) Angle() float64 {
	switch d {
	case DirRight:
		return 0
	case DirDown:
		return 90
	case DirLeft:
		return 180
	default:
		return 270
	}
}

// Player is one connected tank. ID and Token are its identity and survive
// respawn; everything else is game state that respawn rebuilds.
type Player struct {
	ID    int
	Token string

	X, Y          float64 // top-left of the tank
	Dir           Direction
	HP            int
	Weapon        WeaponKind
	WeaponExpiry  time.Time // zero while holding the base weapon
	HazardReadyAt time.Time
	ActiveHazards int
}

// NewPlayer creates a player at (x, y) with full health
func NewPlayer(id int, token string, x, y float64, maxHP int) *Player {
	p := &Player{ID: id, Token: token}
	p.reset(x, y, maxHP)
	return p
}

// reset rebuilds the mutable game state, keeping identity
func (p *Player) reset(x, y float64, maxHP int) {
	p.X = x
	p.Y = y
	p.Dir = DirUp
	p.HP = maxHP
	p.Weapon = WeaponBasic
	p.WeaponExpiry = time.Time{}
	p.HazardReadyAt = time.Time{}
	p.ActiveHazards = 0
}

// Hitbox returns the tank rect
func (p *Player) Hitbox(size float64) Rect {
	return Rect{X: p.X, Y: p.Y, W: size, H: size}
}

// Center returns the tank centre
func (p *Player) Center(size float64) (float64, float64) {
	return p.Hitbox(size).Center()
}

// TakeDamage reduces HP and returns true if the player died.
// HP never goes below zero.
func (p *Player) TakeDamage(dmg int) bool {
	p.HP -= dmg
	if p.HP <= 0 {
		p.HP = 0
		return true
	}
	return false
}

// aimDirection picks the cardinal facing toward (dx, dy); the dominant axis
// wins and ties go horizontal. ok is false for a zero vector.
func aimDirection(dx, dy float64) (Direction, bool) {
	if dx == 0 && dy == 0 {
		return "", false
	}
	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return DirRight, true
		}
		return DirLeft, true
	}
	if dy > 0 {
		return DirDown, true
	}
	return DirUp, true
}

// ToState converts to protocol state. Deadlines are exported as remaining
// seconds relative to now.
func (p *Player) ToState(now time.Time) PlayerState {
	var weaponLeft float64
	if !p.WeaponExpiry.IsZero() {
		weaponLeft = math.Max(0, p.WeaponExpiry.Sub(now).Seconds())
	}
	var trapLeft float64
	if !p.HazardReadyAt.IsZero() {
		trapLeft = math.Max(0, p.HazardReadyAt.Sub(now).Seconds())
	}
	hp := p.HP
	if hp < 0 {
		hp = 0
	}
	return PlayerState{
		X:            p.X,
		Y:            p.Y,
		Dir:          p.Dir,
		HP:           hp,
		Weapon:       p.Weapon,
		WeaponTimer:  round2(weaponLeft),
		TrapCooldown: round2(trapLeft),
		ActiveTraps:  p.ActiveHazards,
	}
}
