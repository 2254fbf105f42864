package tracker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	logx "lolwatch/pkg/logx"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    user_id       TEXT PRIMARY KEY,
    last_activity TIMESTAMPTZ,
    notified      BOOLEAN NOT NULL DEFAULT FALSE
)`

type postgresStore struct {
	pool *pgxpool.Pool
	log  logx.Logger
}

func openPostgres(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("storage.dsn is required for postgres driver")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresStore{pool: pool, log: log}, nil
}

func (s *postgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *postgresStore) Register(ctx context.Context, userID string) (RegisterResult, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users(user_id, last_activity, notified) VALUES($1, NULL, FALSE)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return AlreadyExists, err
	}
	if tag.RowsAffected() == 0 {
		return AlreadyExists, nil
	}
	return Created, nil
}

func (s *postgresStore) Get(ctx context.Context, userID string) (Record, bool, error) {
	var (
		rec Record
		ts  *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, last_activity, notified FROM users WHERE user_id = $1`,
		userID,
	).Scan(&rec.UserID, &ts, &rec.Notified)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	if ts != nil {
		t := ts.UTC()
		rec.LastActivity = &t
	}
	return rec, true, nil
}

func (s *postgresStore) SetActivity(ctx context.Context, userID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET last_activity = $1, notified = FALSE WHERE user_id = $2`,
		at.UTC(), userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *postgresStore) MarkNotified(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET notified = TRUE WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (s *postgresStore) All(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, last_activity, notified FROM users`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			ts  *time.Time
		)
		if err := rows.Scan(&rec.UserID, &ts, &rec.Notified); err != nil {
			return nil, err
		}
		if ts != nil {
			t := ts.UTC()
			rec.LastActivity = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
