package main

import (
	mrand "math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Rules holds the tunable gameplay constants
type Rules struct {
	TankSize       float64
	TankSpeed      float64 // pixels per tick per pressed direction
	ProjectileSize float64
	PickupSize     float64
	HazardSize     float64
	MaxHP          int

	MaxPickups     int
	PickupCooldown time.Duration
	WeaponDuration time.Duration
	SpawnTries     int

	HazardDamage   int
	HazardCooldown time.Duration
	MaxHazards     int
}

// DefaultRules returns the stock tank-battle rules
func DefaultRules() Rules {
	return Rules{
		TankSize:       40,
		TankSpeed:      3,
		ProjectileSize: 8,
		PickupSize:     24,
		HazardSize:     20,
		MaxHP:          3,
		MaxPickups:     3,
		PickupCooldown: 8 * time.Second,
		WeaponDuration: 10 * time.Second,
		SpawnTries:     20,
		HazardDamage:   1,
		HazardCooldown: 3 * time.Second,
		MaxHazards:     3,
	}
}

// IdentityIssuer mints the opaque identity token handed to a player on join
type IdentityIssuer interface {
	Issue(playerID int) (string, error)
}

// World is the single source of truth for one arena. Every field below mu is
// guarded by it; nothing holding mu performs I/O.
type World struct {
	arena  *Arena
	rules  Rules
	tokens IdentityIssuer
	nextID atomic.Int64

	mu              deadlock.Mutex
	players         map[int]*Player
	inputs          map[int]*inputSlot
	projectiles     []*Projectile
	pickups         []*Pickup
	hazards         []*Hazard
	rng             *mrand.Rand
	tick            uint64
	lastPickupSpawn time.Time // zero until the first spawn
}

// NewWorld creates an empty world on arena
func NewWorld(arena *Arena, rules Rules, tokens IdentityIssuer) *World {
	return &World{
		arena:   arena,
		rules:   rules,
		tokens:  tokens,
		players: make(map[int]*Player),
		inputs:  make(map[int]*inputSlot),
		rng:     newRand(),
	}
}

// Arena returns the static arena. It is immutable and safe to share.
func (w *World) Arena() *Arena {
	return w.arena
}

// Rules returns the gameplay constants
func (w *World) Rules() Rules {
	return w.rules
}

// AddPlayer registers a new player at a random free spot and returns its id
// and identity token.
func (w *World) AddPlayer() (int, string, error) {
	id := int(w.nextID.Add(1))
	token, err := w.tokens.Issue(id)
	if err != nil {
		return 0, "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	x, y := w.spawnPoint()
	w.players[id] = NewPlayer(id, token, x, y, w.rules.MaxHP)
	w.inputs[id] = &inputSlot{}
	return id, token, nil
}

// RemovePlayer drops the player, its input slot and every hazard it owns.
// It reports whether the player existed.
func (w *World) RemovePlayer(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	delete(w.inputs, id)
	w.clearHazards(id)
	w.compact()
	return true
}

// SetInput replaces the player's latched input. Unknown ids are ignored.
func (w *World) SetInput(id int, in InputSnapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if slot, ok := w.inputs[id]; ok {
		slot.write(in)
	}
}

// PlayerCount returns the number of players in the world
func (w *World) PlayerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players)
}

// Tick returns the number of ticks applied so far
func (w *World) Tick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// TokenOwner returns the id of the player holding token
func (w *World) TokenOwner(token string) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, p := range w.players {
		if p.Token == token {
			return id, true
		}
	}
	return 0, false
}

// Step applies one tick at now and returns the snapshot taken under the same
// lock, plus the gameplay events the tick produced.
func (w *World) Step(now time.Time) (GameState, []Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.update(now)
	return w.snapshot(now), events
}

// Snapshot returns a consistent copy of the world
func (w *World) Snapshot(now time.Time) GameState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot(now)
}

func (w *World) snapshot(now time.Time) GameState {
	state := GameState{
		Kind:        MsgState,
		Tick:        w.tick,
		Players:     make(map[int]PlayerState, len(w.players)),
		Projectiles: make([]ProjectileState, 0, len(w.projectiles)),
		Pickups:     make([]PickupState, 0, len(w.pickups)),
		Hazards:     make([]HazardState, 0, len(w.hazards)),
	}
	for id, p := range w.players {
		state.Players[id] = p.ToState(now)
	}
	for _, proj := range w.projectiles {
		state.Projectiles = append(state.Projectiles, proj.ToState())
	}
	for _, pk := range w.pickups {
		state.Pickups = append(state.Pickups, pk.ToState())
	}
	for _, h := range w.hazards {
		state.Hazards = append(state.Hazards, h.ToState())
	}
	return state
}

// spawnPoint picks a random top-left for a tank that is inside the arena
// and clear of obstacles. When sampling fails it takes the free spot nearest
// the arena centre, and the centre itself only if the arena has no room.
func (w *World) spawnPoint() (float64, float64) {
	size := w.rules.TankSize
	x, y, ok := findSpot(w.rules.SpawnTries,
		func() (float64, float64) {
			return w.rng.Float64() * (w.arena.Width - size), w.rng.Float64() * (w.arena.Height - size)
		},
		func(x, y float64) bool {
			return w.arena.Free(Rect{X: x, Y: y, W: size, H: size})
		})
	if ok {
		return x, y
	}
	cx, cy := w.arena.Center()
	cx, cy = cx-size/2, cy-size/2
	if w.arena.Free(Rect{X: cx, Y: cy, W: size, H: size}) {
		return cx, cy
	}
	if x, y, ok := w.arena.NearestFree(cx, cy, size); ok {
		return x, y
	}
	return cx, cy
}
