package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSize             = 256
	defaultHistoryDays = 7
	maxHistoryDays     = 365
)

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response error: %v", err)
	}
}

// StatsResponse is the body of GET /stats
type StatsResponse struct {
	Players       int     `json:"players"`
	Connections   int     `json:"connections"`
	Tick          uint64  `json:"tick"`
	Uptime        float64 `json:"uptime"` // seconds
	DroppedEvents int     `json:"dropped_events"`
}

// SetupRoutes configures the HTTP side: the WebSocket transport, public
// stats, the join QR code and the admin endpoints. joinAddr is the TCP
// address players should connect to.
func SetupRoutes(s *Server, admin *AdminAuth, joinAddr string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.serveWS)

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, StatsResponse{
			Players:       s.world.PlayerCount(),
			Connections:   s.hub.Count(),
			Tick:          s.world.Tick(),
			Uptime:        round2(time.Since(s.started).Seconds()),
			DroppedEvents: s.analytics.Dropped(),
		})
	})

	mux.HandleFunc("GET /join.png", func(w http.ResponseWriter, r *http.Request) {
		target := joinTarget(joinAddr, r)
		png, err := qrcode.Encode("tanks://"+target, qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("qrcode error: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("POST /admin/kick", admin.Wrap(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if _, _, err := s.tokens.ParseToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusBadRequest)
			return
		}
		id, ok := s.world.TokenOwner(token)
		if !ok || !s.hub.Kick(id) {
			http.Error(w, "player not connected", http.StatusNotFound)
			return
		}
		log.Printf("Player %d kicked by admin", id)
		writeJSON(w, http.StatusOK, map[string]int{"kicked": id})
	}))

	mux.HandleFunc("GET /admin/events", admin.Wrap(func(w http.ResponseWriter, r *http.Request) {
		days := defaultHistoryDays
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxHistoryDays {
				http.Error(w, "days must be between 1 and 365", http.StatusBadRequest)
				return
			}
			days = n
		}
		counts, err := s.analytics.EventCounts(days)
		if err != nil {
			log.Printf("event counts error: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		kills, err := s.analytics.DailyHistory(EvtKill, days)
		if err != nil {
			log.Printf("kill history error: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"days":   days,
			"counts": counts,
			"kills":  kills,
		})
	}))

	return mux
}

// joinTarget resolves the address a QR code should point at. Without a
// configured host the request's host is combined with the game port.
func joinTarget(joinAddr string, r *http.Request) string {
	host, port, err := net.SplitHostPort(joinAddr)
	if err != nil {
		return joinAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = r.Host
		if h, _, err := net.SplitHostPort(r.Host); err == nil {
			host = h
		}
	}
	return net.JoinHostPort(host, port)
}
