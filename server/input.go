package main

// Point is a position in arena coordinates
type Point struct {
	X, Y float64
}

// InputSnapshot is the latest intent a client reported. Each input message
// replaces it wholesale.
type InputSnapshot struct {
	Up, Down, Left, Right bool
	Shoot                 bool
	Trap                  bool
	Aim                   *Point // nil when the client sent no mouse position
}

// edgeLatch turns a level-held flag into one action per press.
//
//	idle    --write down-->  pending
//	pending --tick-->        handled (still down) or idle (released)
//	handled --write/tick up--> idle
type edgeLatch uint8

const (
	latchIdle edgeLatch = iota
	latchPending
	latchHandled
)

// observe is called on every input write
func (l *edgeLatch) observe(down bool) {
	switch {
	case down && *l == latchIdle:
		*l = latchPending
	case !down && *l == latchHandled:
		*l = latchIdle
	}
}

// consume is called once per tick with the currently latched flag and
// reports whether the action fires this tick. A press released before the
// tick still fires once.
func (l *edgeLatch) consume(down bool) bool {
	switch *l {
	case latchPending:
		if down {
			*l = latchHandled
		} else {
			*l = latchIdle
		}
		return true
	case latchHandled:
		if !down {
			*l = latchIdle
		}
	}
	return false
}

// inputSlot is one player's latched input, owned by the World
type inputSlot struct {
	snap  InputSnapshot
	shoot edgeLatch
	trap  edgeLatch
}

func (s *inputSlot) write(in InputSnapshot) {
	if in.Aim != nil {
		aim := *in.Aim
		in.Aim = &aim
	}
	s.snap = in
	s.shoot.observe(in.Shoot)
	s.trap.observe(in.Trap)
}
