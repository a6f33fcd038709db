package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS logged_calls (
			call_id   TEXT PRIMARY KEY,
			logged_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS call_log (
			call_id        TEXT PRIMARY KEY REFERENCES logged_calls(call_id),
			logged_at      TIMESTAMPTZ NOT NULL,
			phone_number   TEXT NOT NULL,
			customer_name  TEXT NOT NULL,
			room_name      TEXT NOT NULL,
			check_in_date  TEXT NOT NULL,
			check_out_date TEXT NOT NULL,
			guest_count    TEXT NOT NULL,
			call_outcome   TEXT NOT NULL,
			call_summary   TEXT NOT NULL,
			transcript     TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Contains reports whether callID is in the dedup set.
func (s *Store) Contains(ctx context.Context, callID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM logged_calls WHERE call_id = $1)`, callID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return exists, nil
}

// Record commits the dedup entry and the audit row in one transaction, so a
// call identifier can only enter the set together with its row.
func (s *Store) Record(ctx context.Context, rec events.LogRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO logged_calls (call_id, logged_at) VALUES ($1, $2)`,
		rec.CallID, rec.LoggedAt,
	); err != nil {
		return fmt.Errorf("insert dedup entry: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO call_log (call_id, logged_at, phone_number, customer_name, room_name,
			check_in_date, check_out_date, guest_count, call_outcome, call_summary, transcript)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.CallID, rec.LoggedAt, rec.PhoneNumber, rec.CustomerName, rec.RoomName,
		rec.CheckInDate, rec.CheckOutDate, rec.GuestCount, rec.CallOutcome, rec.CallSummary,
		rec.Transcript,
	); err != nil {
		return fmt.Errorf("insert call row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record tx: %w", err)
	}

	slog.Debug("call recorded", "call_id", rec.CallID)
	return nil
}

// CountLogged returns the size of the dedup set.
func (s *Store) CountLogged(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM logged_calls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logged calls: %w", err)
	}
	return n, nil
}

// RecentCalls returns the latest audit rows, newest first.
func (s *Store) RecentCalls(ctx context.Context, limit int) ([]events.LogRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT call_id, logged_at, phone_number, customer_name, room_name,
		       check_in_date, check_out_date, guest_count, call_outcome, call_summary
		FROM call_log
		ORDER BY logged_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []events.LogRecord
	for rows.Next() {
		var r events.LogRecord
		if err := rows.Scan(&r.CallID, &r.LoggedAt, &r.PhoneNumber, &r.CustomerName,
			&r.RoomName, &r.CheckInDate, &r.CheckOutDate, &r.GuestCount,
			&r.CallOutcome, &r.CallSummary); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
