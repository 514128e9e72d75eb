package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAdminAuthCheck(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	a := NewAdminAuth(string(hash))
	if !a.Enabled() {
		t.Fatal("auth should be enabled with a valid hash")
	}
	if !a.Check("admin", "pw") {
		t.Error("correct credentials rejected")
	}
	if a.Check("root", "pw") {
		t.Error("wrong user accepted")
	}
	if a.Check("admin", "nope") {
		t.Error("wrong password accepted")
	}
}

func TestAdminAuthInvalidHash(t *testing.T) {
	a := NewAdminAuth("plaintext")
	if a.Enabled() {
		t.Error("a non-bcrypt hash should disable admin")
	}
	if a.Check("admin", "plaintext") {
		t.Error("disabled auth should refuse everything")
	}
}

func TestAdminAuthRateLimit(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	a := NewAdminAuth(string(hash))
	h := a.Wrap(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	do := func(pass string) int {
		r := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
		r.SetBasicAuth("admin", pass)
		w := httptest.NewRecorder()
		h(w, r)
		return w.Code
	}

	if code := do("pw"); code != http.StatusNoContent {
		t.Fatalf("expected success, got %d", code)
	}
	for i := 0; i < maxLoginAttempts; i++ {
		if code := do("bad"); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, code)
		}
	}
	if code := do("pw"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after too many failures, got %d", code)
	}
}
