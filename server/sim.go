package main

import (
	"math"
	"time"
)

// update runs one tick. Caller holds w.mu.
func (w *World) update(now time.Time) []Event {
	w.tick++
	var events []Event

	w.expireWeapons(now)
	w.spawnPickup(now)

	for id, p := range w.players {
		slot, ok := w.inputs[id]
		if !ok {
			continue
		}
		w.movePlayer(p, slot.snap)
		if slot.trap.consume(slot.snap.Trap) {
			if w.placeHazard(p, now) {
				events = append(events, Event{Type: EvtHazardPlaced, PlayerID: id})
			}
		}
		if slot.shoot.consume(slot.snap.Shoot) {
			w.fire(p, slot.snap.Aim)
		}
	}

	w.advanceProjectiles()
	w.collideProjectiles()
	events = w.resolveHits(events)
	events = w.collectPickups(now, events)
	events = w.triggerHazards(events)
	w.compact()
	return events
}

// expireWeapons reverts timed weapons whose expiry has passed
func (w *World) expireWeapons(now time.Time) {
	for _, p := range w.players {
		if !p.WeaponExpiry.IsZero() && !now.Before(p.WeaponExpiry) {
			p.Weapon = WeaponBasic
			p.WeaponExpiry = time.Time{}
		}
	}
}

// spawnPickup places at most one pickup per tick while under the cap and off
// cooldown. A tick whose position search fails simply skips the spawn.
func (w *World) spawnPickup(now time.Time) {
	if len(w.pickups) >= w.rules.MaxPickups {
		return
	}
	if !w.lastPickupSpawn.IsZero() && now.Sub(w.lastPickupSpawn) < w.rules.PickupCooldown {
		return
	}
	size := w.rules.PickupSize
	x, y, ok := findSpot(w.rules.SpawnTries,
		func() (float64, float64) {
			return size/2 + w.rng.Float64()*(w.arena.Width-size), size/2 + w.rng.Float64()*(w.arena.Height-size)
		},
		func(x, y float64) bool {
			return w.arena.Free(RectAt(x, y, size, size))
		})
	if !ok {
		return
	}
	kind := PowerupPool[w.rng.IntN(len(PowerupPool))]
	w.pickups = append(w.pickups, NewPickup(x, y, kind))
	w.lastPickupSpawn = now
}

// movePlayer applies the directional flags one axis at a time so a tank
// blocked on one axis still slides along the other.
func (w *World) movePlayer(p *Player, in InputSnapshot) {
	speed := w.rules.TankSpeed
	size := w.rules.TankSize

	var dx, dy float64
	if in.Up {
		dy -= speed
	}
	if in.Down {
		dy += speed
	}
	if in.Left {
		dx -= speed
	}
	if in.Right {
		dx += speed
	}

	if dx != 0 {
		nx := Clamp(p.X+dx, 0, w.arena.Width-size)
		if !w.arena.Blocked(Rect{X: nx, Y: p.Y, W: size, H: size}) {
			p.X = nx
		}
	}
	if dy != 0 {
		ny := Clamp(p.Y+dy, 0, w.arena.Height-size)
		if !w.arena.Blocked(Rect{X: p.X, Y: ny, W: size, H: size}) {
			p.Y = ny
		}
	}

	if in.Aim != nil {
		cx, cy := p.Center(size)
		if dir, ok := aimDirection(in.Aim.X-cx, in.Aim.Y-cy); ok {
			p.Dir = dir
		}
		return
	}
	switch {
	case dx > 0:
		p.Dir = DirRight
	case dx < 0:
		p.Dir = DirLeft
	case dy > 0:
		p.Dir = DirDown
	case dy < 0:
		p.Dir = DirUp
	}
}

// placeHazard drops a hazard centred on the tank if the player is off
// cooldown and under the cap
func (w *World) placeHazard(p *Player, now time.Time) bool {
	if p.ActiveHazards >= w.rules.MaxHazards || now.Before(p.HazardReadyAt) {
		return false
	}
	cx, cy := p.Center(w.rules.TankSize)
	w.hazards = append(w.hazards, NewHazard(cx, cy, p.ID))
	p.HazardReadyAt = now.Add(w.rules.HazardCooldown)
	p.ActiveHazards++
	return true
}

// fire spawns the current weapon's projectiles from the tank centre
func (w *World) fire(p *Player, aim *Point) {
	def := GetWeaponDef(p.Weapon)
	cx, cy := p.Center(w.rules.TankSize)

	base := p.Dir.Angle()
	if aim != nil {
		dx, dy := aim.X-cx, aim.Y-cy
		if dx != 0 || dy != 0 {
			base = math.Atan2(dy, dx) * 180 / math.Pi
		}
	}
	for _, angle := range spreadAngles(base, def.Count, def.Spread) {
		w.projectiles = append(w.projectiles, NewProjectile(p.ID, cx, cy, angle, def))
	}
}

// projectileBlocked reports whether a projectile centred at (x, y) is off the
// arena or touching an obstacle
func (w *World) projectileBlocked(x, y float64) bool {
	if x < 0 || x > w.arena.Width || y < 0 || y > w.arena.Height {
		return true
	}
	return w.arena.Blocked(RectAt(x, y, w.rules.ProjectileSize, w.rules.ProjectileSize))
}

func (w *World) advanceProjectiles() {
	for _, proj := range w.projectiles {
		proj.Update(w.projectileBlocked)
	}
}

// collideProjectiles destroys every pair of overlapping projectiles with
// different owners. A projectile already destroyed this tick takes no part.
func (w *World) collideProjectiles() {
	size := w.rules.ProjectileSize
	for i := 0; i < len(w.projectiles); i++ {
		a := w.projectiles[i]
		if !a.Alive {
			continue
		}
		for j := i + 1; j < len(w.projectiles); j++ {
			b := w.projectiles[j]
			if !b.Alive || a.OwnerID == b.OwnerID {
				continue
			}
			if a.Hitbox(size).Overlaps(b.Hitbox(size)) {
				a.Alive = false
				b.Alive = false
				break
			}
		}
	}
}

// collectPickups hands each pickup to the first tank overlapping it
func (w *World) collectPickups(now time.Time, events []Event) []Event {
	ksize := w.rules.PickupSize
	tsize := w.rules.TankSize
	for _, pk := range w.pickups {
		if !pk.Alive {
			continue
		}
		hb := pk.Hitbox(ksize)
		for id, p := range w.players {
			if !hb.Overlaps(p.Hitbox(tsize)) {
				continue
			}
			p.Weapon = pk.Weapon
			p.WeaponExpiry = now.Add(w.rules.WeaponDuration)
			pk.Alive = false
			events = append(events, Event{Type: EvtPickup, PlayerID: id, Data: string(pk.Weapon)})
			break
		}
	}
	return events
}

// compact drops dead entities from the slices
func (w *World) compact() {
	w.projectiles = filterAlive(w.projectiles, func(p *Projectile) bool { return p.Alive })
	w.pickups = filterAlive(w.pickups, func(p *Pickup) bool { return p.Alive })
	w.hazards = filterAlive(w.hazards, func(h *Hazard) bool { return h.Alive })
}

func filterAlive[T any](s []T, alive func(T) bool) []T {
	out := s[:0]
	for _, v := range s {
		if alive(v) {
			out = append(out, v)
		}
	}
	clear(s[len(out):])
	return out
}
