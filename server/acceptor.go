package main

import (
	"context"
	"errors"
	"log"
	"net"
	"time"
)

const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// Server ties the world, the broadcast hub and the event log to the network
// transports.
type Server struct {
	world     *World
	hub       *Hub
	analytics *Analytics
	tokens    *TokenIssuer
	started   time.Time
}

// NewServer creates a Server
func NewServer(world *World, hub *Hub, analytics *Analytics, tokens *TokenIssuer) *Server {
	return &Server{
		world:     world,
		hub:       hub,
		analytics: analytics,
		tokens:    tokens,
		started:   time.Now(),
	}
}

// ServeTCP accepts clients on ln until ctx is cancelled. Each client gets a
// player, the init frame and its own handler goroutine.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var delay time.Duration
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if delay == 0 {
				delay = acceptBackoffMin
			} else {
				delay = min(delay*2, acceptBackoffMax)
			}
			log.Printf("accept error: %v; retrying in %v", err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		ip := hostOnly(nc.RemoteAddr().String())
		if !s.hub.TryConnect(ip) {
			log.Printf("rejecting %s: too many connections (%d open)", ip, s.hub.TotalConns())
			nc.Close()
			continue
		}

		c := newTCPConn(nc)
		if id, ok := s.admit(c); ok {
			go s.handleConn(id, c)
		}
	}
}

// admit creates the player, sends init and registers the connection for
// broadcasts. init is queued before registration so it is always the first
// frame the client sees.
func (s *Server) admit(c Conn) (int, bool) {
	id, token, err := s.world.AddPlayer()
	if err != nil {
		log.Printf("add player for %s: %v", c.RemoteIP(), err)
		s.hub.TrackDisconnect(c.RemoteIP())
		c.Close()
		return 0, false
	}

	data, err := encodeLine(InitMsg{
		Kind:        MsgInit,
		PlayerID:    id,
		PlayerToken: token,
		Arena:       arenaInfo(s.world.Arena(), s.world.Rules().TankSize),
	})
	if err == nil {
		err = c.Send(data, false)
	}
	if err != nil {
		log.Printf("init for player %d: %v", id, err)
		s.world.RemovePlayer(id)
		s.hub.TrackDisconnect(c.RemoteIP())
		c.Close()
		return 0, false
	}

	s.hub.Register(id, c)
	s.analytics.Track(Event{Type: EvtConnect, PlayerID: id, Data: c.RemoteIP()})
	log.Printf("Player %d connected from %s", id, c.RemoteIP())
	return id, true
}

func arenaInfo(a *Arena, tankSize float64) *ArenaInfo {
	info := &ArenaInfo{
		Width:     a.Width,
		Height:    a.Height,
		TankSize:  tankSize,
		Obstacles: make([]ObstacleState, 0, len(a.Obstacles)),
	}
	for _, r := range a.Obstacles {
		info.Obstacles = append(info.Obstacles, ObstacleState{X: r.X, Y: r.Y, W: r.W, H: r.H})
	}
	return info
}
