package tracker

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "lolwatch/pkg/logx"
)

// Store is the single source of truth for activity records.
//
// Every mutating call persists before returning, and the
// (LastActivity, Notified) pair always updates atomically.
type Store interface {
	// Register creates a record with no activity timestamp. Registering an
	// existing user is a no-op reported as AlreadyExists.
	Register(ctx context.Context, userID string) (RegisterResult, error)

	// Get returns the record for userID; ok is false if none exists.
	Get(ctx context.Context, userID string) (rec Record, ok bool, err error)

	// SetActivity records a new activity start: LastActivity=at, Notified=false.
	// Returns ErrNotRegistered if no record exists.
	SetActivity(ctx context.Context, userID string, at time.Time) error

	// MarkNotified sets Notified=true. Returns ErrNotRegistered if no record exists.
	MarkNotified(ctx context.Context, userID string) error

	// All returns a snapshot of every record. Ordering is unspecified.
	All(ctx context.Context) ([]Record, error)

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	case "postgres", "postgresql":
		return openPostgres(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
