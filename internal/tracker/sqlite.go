package tracker

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "lolwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Register(ctx context.Context, userID string) (RegisterResult, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users(user_id, last_activity, notified) VALUES(?, NULL, 0)`,
		userID,
	)
	if err != nil {
		return AlreadyExists, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return AlreadyExists, err
	}
	if n == 0 {
		return AlreadyExists, nil
	}
	return Created, nil
}

func (s *sqliteStore) Get(ctx context.Context, userID string) (Record, bool, error) {
	var (
		rec  Record
		ts   sql.NullString
		noti int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, last_activity, notified FROM users WHERE user_id = ?`,
		userID,
	).Scan(&rec.UserID, &ts, &noti)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	if ts.Valid {
		t, err := time.Parse(time.RFC3339Nano, ts.String)
		if err != nil {
			return Record{}, false, fmt.Errorf("parse last_activity for %q: %w", userID, err)
		}
		t = t.UTC()
		rec.LastActivity = &t
	}
	rec.Notified = noti != 0
	return rec, true, nil
}

func (s *sqliteStore) SetActivity(ctx context.Context, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_activity = ?, notified = 0 WHERE user_id = ?`,
		at.UTC().Format(time.RFC3339Nano), userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *sqliteStore) MarkNotified(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET notified = 1 WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *sqliteStore) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, last_activity, notified FROM users`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec  Record
			ts   sql.NullString
			noti int
		)
		if err := rows.Scan(&rec.UserID, &ts, &noti); err != nil {
			return nil, err
		}
		if ts.Valid {
			t, err := time.Parse(time.RFC3339Nano, ts.String)
			if err != nil {
				s.log.Warn("skipping record with bad timestamp",
					logx.String("user_id", rec.UserID), logx.Err(err))
				continue
			}
			t = t.UTC()
			rec.LastActivity = &t
		}
		rec.Notified = noti != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}
