// Package auth turns bearer tokens into a trusted caller identity.
//
// Credential verification (signup, login, password storage) happens outside
// this service; whatever issues the tokens shares the HS256 secret. By the
// time a request reaches the reservation core, the caller identity in the
// request context is trusted.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"roomreserve/internal/model"
)

// RoleAdmin marks callers allowed to edit the room catalog, list every
// reservation, and cancel on behalf of others.
const RoleAdmin = "admin"

// Caller is the authenticated identity attached to a request.
type Caller struct {
	ID    string
	Name  string
	Admin bool
}

// Claims is the token payload: registered claims plus display name and role.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Mint signs a token for the caller, valid for ttl.
func Mint(secret []byte, caller Caller, ttl time.Duration) (string, error) {
	role := ""
	if caller.Admin {
		role = RoleAdmin
	}
	now := time.Now()
	claims := Claims{
		Name: caller.Name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse validates an HS256 token and extracts the caller.
func Parse(secret []byte, token string) (Caller, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Caller{}, err
	}
	if !parsed.Valid {
		return Caller{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return Caller{}, errors.New("token has no subject")
	}
	return Caller{
		ID:    claims.Subject,
		Name:  claims.Name,
		Admin: claims.Role == RoleAdmin,
	}, nil
}

type callerKey struct{}

// WithCaller returns a context carrying the caller.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom extracts the caller set by the middleware.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller in the request context for downstream handlers.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				deny(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			caller, err := Parse(secret, token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// RequireAdmin rejects callers without the admin role. Must run inside
// RequireAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !caller.Admin {
			deny(w, http.StatusForbidden, "administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}
