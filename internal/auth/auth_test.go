package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestMintParseRoundTrip(t *testing.T) {
	token, err := Mint(secret, Caller{ID: "user-1", Name: "John Doe"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	caller, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if caller.ID != "user-1" || caller.Name != "John Doe" || caller.Admin {
		t.Fatalf("caller = %+v", caller)
	}

	admin, err := Mint(secret, Caller{ID: "admin-1", Admin: true}, time.Hour)
	if err != nil {
		t.Fatalf("mint admin: %v", err)
	}
	caller, err = Parse(secret, admin)
	if err != nil {
		t.Fatalf("parse admin: %v", err)
	}
	if !caller.Admin {
		t.Fatal("admin role lost in round trip")
	}
}

func TestParseRejects(t *testing.T) {
	token, err := Mint(secret, Caller{ID: "user-1"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := Parse([]byte("other-secret"), token); err == nil {
		t.Fatal("wrong secret accepted")
	}

	expired, err := Mint(secret, Caller{ID: "user-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("mint expired: %v", err)
	}
	if _, err := Parse(secret, expired); err == nil {
		t.Fatal("expired token accepted")
	}

	if _, err := Parse(secret, "not-a-token"); err == nil {
		t.Fatal("garbage accepted")
	}
}

func TestMiddleware(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok {
			t.Error("caller missing from context")
		}
		w.Header().Set("X-Caller", caller.ID)
		w.WriteHeader(http.StatusOK)
	})

	authed := RequireAuth(secret)(echo)
	adminOnly := RequireAuth(secret)(RequireAdmin(echo))

	userToken, err := Mint(secret, Caller{ID: "user-1"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	adminToken, err := Mint(secret, Caller{ID: "admin-1", Admin: true}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	do := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(authed, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", rec.Code)
	}
	if rec := do(authed, "bogus"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", rec.Code)
	}
	if rec := do(authed, userToken); rec.Code != http.StatusOK || rec.Header().Get("X-Caller") != "user-1" {
		t.Fatalf("user token: status %d, caller %q", rec.Code, rec.Header().Get("X-Caller"))
	}
	if rec := do(adminOnly, userToken); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin on admin route: status %d, want 403", rec.Code)
	}
	if rec := do(adminOnly, adminToken); rec.Code != http.StatusOK {
		t.Fatalf("admin on admin route: status %d, want 200", rec.Code)
	}
}
