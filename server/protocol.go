package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Client -> Server message kinds
const (
	MsgInput = "input"
)

// Server -> Client message kinds
const (
	MsgInit  = "init"
	MsgState = "state"
)

var (
	errMalformed   = errors.New("malformed frame")
	errUnknownKind = errors.New("unknown message kind")
)

// InEnvelope is used for incoming frames; keys stay raw until the kind is known
type InEnvelope struct {
	Kind string          `json:"kind"`
	Keys json.RawMessage `json:"keys,omitempty"`
}

// ClientKeys is the body of an input message
type ClientKeys struct {
	Up       bool            `json:"up"`
	Down     bool            `json:"down"`
	Left     bool            `json:"left"`
	Right    bool            `json:"right"`
	Shoot    bool            `json:"shoot"`
	Trap     bool            `json:"trap"`
	MousePos json.RawMessage `json:"mouse_pos,omitempty"` // [x, y] or absent
}

// InitMsg is the handshake sent once right after connect
type InitMsg struct {
	Kind        string     `json:"kind"`
	PlayerID    int        `json:"player_id"`
	PlayerToken string     `json:"player_token"`
	Arena       *ArenaInfo `json:"arena,omitempty"`
}

// ArenaInfo describes the static playfield so clients can draw it
type ArenaInfo struct {
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
	TankSize  float64         `json:"tank_size"`
	Obstacles []ObstacleState `json:"obstacles"`
}

// ObstacleState is one static obstacle rect
type ObstacleState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PlayerState is broadcast per player each tick
type PlayerState struct {
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Dir          Direction  `json:"dir"`
	HP           int        `json:"hp"`
	Weapon       WeaponKind `json:"weapon"`
	WeaponTimer  float64    `json:"weapon_timer"`  // seconds left on a pickup weapon
	TrapCooldown float64    `json:"trap_cooldown"` // seconds until the next trap
	ActiveTraps  int        `json:"active_traps"`
}

// ProjectileState is broadcast per projectile
type ProjectileState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Owner int     `json:"owner"`
}

// PickupState is broadcast per pickup
type PickupState struct {
	X      float64    `json:"x"`
	Y      float64    `json:"y"`
	Weapon WeaponKind `json:"weapon"`
}

// HazardState is broadcast per hazard
type HazardState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Owner int     `json:"owner"`
}

// GameState is the full state broadcast. Players are keyed by player id.
type GameState struct {
	Kind        string              `json:"kind"`
	Tick        uint64              `json:"tick"`
	Players     map[int]PlayerState `json:"players"`
	Projectiles []ProjectileState   `json:"projectiles"`
	Pickups     []PickupState       `json:"pickups"`
	Hazards     []HazardState       `json:"hazards"`
}

// decodeClientFrame parses one inbound frame. Only input frames are
// recognised; anything else returns an error the caller drops.
func decodeClientFrame(frame []byte) (InputSnapshot, error) {
	var env InEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return InputSnapshot{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if env.Kind != MsgInput {
		return InputSnapshot{}, fmt.Errorf("%w: %q", errUnknownKind, env.Kind)
	}

	raw := bytes.TrimSpace(env.Keys)
	if len(raw) == 0 || raw[0] != '{' {
		return InputSnapshot{}, fmt.Errorf("%w: keys must be an object", errMalformed)
	}
	var keys ClientKeys
	if err := json.Unmarshal(raw, &keys); err != nil {
		return InputSnapshot{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	in := InputSnapshot{
		Up:    keys.Up,
		Down:  keys.Down,
		Left:  keys.Left,
		Right: keys.Right,
		Shoot: keys.Shoot,
		Trap:  keys.Trap,
	}
	mp := bytes.TrimSpace(keys.MousePos)
	if len(mp) > 0 && !bytes.Equal(mp, []byte("null")) {
		var pos []float64
		if err := json.Unmarshal(mp, &pos); err != nil || len(pos) != 2 {
			return InputSnapshot{}, fmt.Errorf("%w: mouse_pos must be [x, y]", errMalformed)
		}
		in.Aim = &Point{X: pos[0], Y: pos[1]}
	}
	return in, nil
}

// encodeLine marshals v as one newline-terminated JSON frame
func encodeLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// encodeBinary marshals v as msgpack using the JSON field names
func encodeBinary(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
