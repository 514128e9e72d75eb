package main

import (
	"log"
	"sync"
)

const (
	defaultMaxConnsPerIP = 8
	defaultMaxTotalConns = 256
)

// Hub keeps the live connections and fans state out to them. Its locks are
// never held together with the world lock.
type Hub struct {
	mu    sync.RWMutex
	peers map[int]Conn

	// Connection limiting
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int
}

// NewHub creates a Hub. Non-positive limits fall back to the defaults.
func NewHub(maxConnsPerIP, maxTotalConns int) *Hub {
	if maxConnsPerIP <= 0 {
		maxConnsPerIP = defaultMaxConnsPerIP
	}
	if maxTotalConns <= 0 {
		maxTotalConns = defaultMaxTotalConns
	}
	return &Hub{
		peers:         make(map[int]Conn),
		ipConns:       make(map[string]int),
		maxConnsPerIP: maxConnsPerIP,
		maxTotalConns: maxTotalConns,
	}
}

// TryConnect reserves a connection slot for ip if both limits allow it.
// A successful call must be paired with TrackDisconnect.
func (h *Hub) TryConnect(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= h.maxConnsPerIP {
		return false
	}
	h.ipConns[ip]++
	h.totalConns++
	return true
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

// Register adds a connection under the player's id
func (h *Hub) Register(id int, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[id] = c
}

// Unregister removes a connection; it reports whether one was registered
func (h *Hub) Unregister(id int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[id]; !ok {
		return false
	}
	delete(h.peers, id)
	return true
}

// Count returns the number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Kick closes a player's connection. Its handler sees the read fail and
// cleans up as for any disconnect.
func (h *Hub) Kick(id int) bool {
	h.mu.RLock()
	c, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	c.Close()
	return true
}

// Broadcast encodes state once per wire format and queues it on every
// connection. A failing or slow peer only loses its own copy. It returns how
// many peers accepted the frame.
func (h *Hub) Broadcast(state GameState) int {
	h.mu.RLock()
	peers := make([]Conn, 0, len(h.peers))
	wantBinary := false
	for _, c := range h.peers {
		peers = append(peers, c)
		wantBinary = wantBinary || c.WantsBinary()
	}
	h.mu.RUnlock()
	if len(peers) == 0 {
		return 0
	}

	line, err := encodeLine(state)
	if err != nil {
		log.Printf("marshal state error: %v", err)
		return 0
	}
	var bin []byte
	if wantBinary {
		if bin, err = encodeBinary(state); err != nil {
			log.Printf("msgpack state error: %v", err)
		}
	}

	sent := 0
	for _, c := range peers {
		var err error
		if c.WantsBinary() && bin != nil {
			err = c.Send(bin, true)
		} else {
			err = c.Send(line, false)
		}
		if err == nil {
			sent++
		}
	}
	return sent
}
