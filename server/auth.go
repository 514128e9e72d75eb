package main

import (
	"crypto/subtle"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	adminUser        = "admin"
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

// AdminAuth guards the admin routes with HTTP basic auth. The password is
// checked against a bcrypt hash; with no hash configured every request is
// refused.
type AdminAuth struct {
	hash []byte

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAdminAuth creates the guard for a bcrypt password hash
func NewAdminAuth(hash string) *AdminAuth {
	a := &AdminAuth{rateMap: make(map[string]*rateEntry)}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			log.Printf("admin hash rejected, admin routes disabled: %v", err)
		} else {
			a.hash = []byte(hash)
		}
	}
	return a
}

// Enabled reports whether an admin password is configured
func (a *AdminAuth) Enabled() bool {
	return len(a.hash) > 0
}

// Check verifies user and password
func (a *AdminAuth) Check(user, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

// Wrap returns next guarded by basic auth
func (a *AdminAuth) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			http.Error(w, "admin disabled", http.StatusNotFound)
			return
		}
		ip := extractIP(r)
		if a.blocked(ip) {
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || !a.Check(user, pass) {
			a.recordFailure(ip)
			w.Header().Set("WWW-Authenticate", `Basic realm="tanks admin"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// blocked reports whether ip used up its failed attempts for this window
func (a *AdminAuth) blocked(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	entry, ok := a.rateMap[ip]
	return ok && time.Now().Before(entry.ResetAt) && entry.Count >= maxLoginAttempts
}

func (a *AdminAuth) recordFailure(ip string) {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return
	}
	entry.Count++
}
