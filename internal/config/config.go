// Package config carries the runtime settings for the roomreserve server.
// Values are populated from CLI flags and environment variables in cmd; this
// package is a plain data carrier so every layer depends on one shape.
package config

import "time"

// Config holds all server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Dev runs the server against the in-memory store instead of Postgres.
	Dev bool

	// Database connection settings.
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// AuthSecret signs and verifies caller tokens (HS256).
	AuthSecret string

	// LockWait bounds how long an admission waits on a contended tuple
	// before failing as retryable.
	LockWait time.Duration

	// RateLimitRPS and RateLimitBurst shape the per-client token bucket.
	// RPS <= 0 disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// AllowMultiplePerRequester permits one requester to hold several
	// confirmed reservations for the same (room, date, slot) tuple.
	AllowMultiplePerRequester bool

	// EnforceCancelCutoff blocks non-admin cancellations once the slot's
	// start time has passed.
	EnforceCancelCutoff bool

	// LogJSON switches the structured log output from text to JSON.
	LogJSON bool
}
