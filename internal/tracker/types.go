package tracker

import (
	"errors"
	"time"
)

// ErrNotRegistered is returned by mutating operations that target a user
// without a record.
var ErrNotRegistered = errors.New("user not registered")

// RegisterResult distinguishes first-time registration from the idempotent
// repeat case. AlreadyExists is not an error.
type RegisterResult int

const (
	Created RegisterResult = iota
	AlreadyExists
)

func (r RegisterResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Record is one tracked user's activity state.
//
// LastActivity is nil until the user is first observed starting the target
// activity. Notified flips to true once a threshold alert has been sent for
// the current inactivity episode and is reset on every new start edge.
type Record struct {
	UserID       string     `json:"user_id"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	Notified     bool       `json:"notified"`
}

// Config selects and configures the store backend.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "file": dependency-free file backend (snapshot + jsonl journal)
//   - "postgres": PostgreSQL via DSN
//   - "memory": volatile, for tests and dry runs
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
