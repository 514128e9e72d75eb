package main

import (
	"context"
	"log"
	"time"
)

const DefaultTickRate = 60 // simulation ticks per second

// Broadcaster receives every tick's state
type Broadcaster interface {
	Broadcast(state GameState) int
}

// EventSink receives every tick's gameplay events
type EventSink interface {
	Track(evt Event)
}

// Game drives the world at a fixed tick rate. Each tick mutates and
// snapshots the world under one lock acquisition, then broadcasts the
// snapshot with the lock released.
type Game struct {
	world    *World
	out      Broadcaster
	events   EventSink
	tickRate int
}

// NewGame creates a Game. A non-positive tick rate uses DefaultTickRate.
func NewGame(world *World, out Broadcaster, events EventSink, tickRate int) *Game {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	return &Game{world: world, out: out, events: events, tickRate: tickRate}
}

// TickDuration is the interval between ticks
func (g *Game) TickDuration() time.Duration {
	return time.Second / time.Duration(g.tickRate)
}

// Run ticks until ctx is cancelled
func (g *Game) Run(ctx context.Context) {
	ticker := time.NewTicker(g.TickDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.step(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// step runs one tick at now
func (g *Game) step(now time.Time) {
	state, events := g.world.Step(now)
	g.out.Broadcast(state)

	for _, evt := range events {
		if evt.Type == EvtDeath {
			log.Printf("Player %d died. Respawning.", evt.PlayerID)
		}
		evt.Timestamp = now.UTC()
		g.events.Track(evt)
	}
}
