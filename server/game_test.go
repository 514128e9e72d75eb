package main

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockBroadcaster captures broadcast states for testing
type mockBroadcaster struct {
	mu     sync.Mutex
	states []GameState
}

func (m *mockBroadcaster) Broadcast(state GameState) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	return 1
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

type mockSink struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockSink) Track(evt Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func TestGameTickDuration(t *testing.T) {
	w := newTestWorld(t)
	if d := NewGame(w, &mockBroadcaster{}, &mockSink{}, 0).TickDuration(); d != time.Second/60 {
		t.Errorf("expected default 60 Hz, got %v", d)
	}
	if d := NewGame(w, &mockBroadcaster{}, &mockSink{}, 20).TickDuration(); d != 50*time.Millisecond {
		t.Errorf("expected 50ms, got %v", d)
	}
}

func TestGameStepBroadcastsAndTracks(t *testing.T) {
	w := newTestWorld(t)
	out := &mockBroadcaster{}
	sink := &mockSink{}
	g := NewGame(w, out, sink, DefaultTickRate)

	attacker := addPlayerAt(t, w, 100, 100)
	victim := addPlayerAt(t, w, 100, 200)
	victim.HP = 1
	w.projectiles = append(w.projectiles, NewProjectile(attacker.ID, 120, 210, 90, GetWeaponDef(WeaponBasic)))

	now := time.Now()
	g.step(now)

	if out.count() != 1 {
		t.Fatalf("expected one broadcast, got %d", out.count())
	}
	if out.states[0].Tick != 1 || len(out.states[0].Players) != 2 {
		t.Errorf("unexpected state %+v", out.states[0])
	}

	var kill, death bool
	for _, evt := range sink.events {
		if !evt.Timestamp.Equal(now.UTC()) {
			t.Errorf("event %s not stamped with the tick time", evt.Type)
		}
		switch evt.Type {
		case EvtKill:
			kill = evt.PlayerID == attacker.ID && evt.OtherID == victim.ID
		case EvtDeath:
			death = evt.PlayerID == victim.ID && evt.OtherID == attacker.ID
		}
	}
	if !kill || !death {
		t.Errorf("expected kill and death events, got %+v", sink.events)
	}
}

func TestGameRunStopsOnCancel(t *testing.T) {
	w := newTestWorld(t)
	out := &mockBroadcaster{}
	g := NewGame(w, out, &mockSink{}, 200)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	waitFor(t, "ticks", func() bool { return out.count() >= 3 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if w.Tick() < 3 {
		t.Errorf("expected at least 3 ticks, got %d", w.Tick())
	}
}
