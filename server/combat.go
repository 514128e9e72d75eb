package main

import "strconv"

// resolveHits applies each projectile to the first non-owner tank it touches
func (w *World) resolveHits(events []Event) []Event {
	psize := w.rules.ProjectileSize
	tsize := w.rules.TankSize
	for _, proj := range w.projectiles {
		if !proj.Alive {
			continue
		}
		hb := proj.Hitbox(psize)
		for id, p := range w.players {
			if id == proj.OwnerID || !hb.Overlaps(p.Hitbox(tsize)) {
				continue
			}
			proj.Alive = false
			if p.TakeDamage(proj.Damage) {
				events = append(events,
					Event{Type: EvtKill, PlayerID: proj.OwnerID, OtherID: id},
					Event{Type: EvtDeath, PlayerID: id, OtherID: proj.OwnerID})
				w.respawn(p)
			}
			break
		}
	}
	return events
}

// triggerHazards lets each hazard hurt the first non-owner tank touching it
func (w *World) triggerHazards(events []Event) []Event {
	hsize := w.rules.HazardSize
	tsize := w.rules.TankSize
	for _, h := range w.hazards {
		if !h.Alive {
			continue
		}
		hb := h.Hitbox(hsize)
		for id, p := range w.players {
			if id == h.OwnerID || !hb.Overlaps(p.Hitbox(tsize)) {
				continue
			}
			h.Alive = false
			if owner, ok := w.players[h.OwnerID]; ok && owner.ActiveHazards > 0 {
				owner.ActiveHazards--
			}
			events = append(events, Event{Type: EvtHazardHit, PlayerID: id, OtherID: h.OwnerID,
				Data: strconv.Itoa(w.rules.HazardDamage)})
			if p.TakeDamage(w.rules.HazardDamage) {
				events = append(events,
					Event{Type: EvtKill, PlayerID: h.OwnerID, OtherID: id},
					Event{Type: EvtDeath, PlayerID: id, OtherID: h.OwnerID})
				w.respawn(p)
			}
			break
		}
	}
	return events
}

// respawn rebuilds a dead player in place and clears its hazards. The id and
// identity token are kept.
func (w *World) respawn(p *Player) {
	x, y := w.spawnPoint()
	p.reset(x, y, w.rules.MaxHP)
	w.clearHazards(p.ID)
}

// clearHazards marks every hazard owned by id as gone
func (w *World) clearHazards(id int) {
	for _, h := range w.hazards {
		if h.OwnerID == id {
			h.Alive = false
		}
	}
}
