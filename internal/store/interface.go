package store

import (
	"context"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
)

// Registry is the durable record of calls already committed to the log,
// consumed by the gate and the API. The concrete implementation is *Store
// (pgx-backed).
type Registry interface {
	// Contains reports whether the call identifier has already been logged.
	Contains(ctx context.Context, callID string) (bool, error)
	// Record adds the call identifier to the dedup set together with its
	// audit row, atomically. Called only after the sink append succeeded.
	Record(ctx context.Context, rec events.LogRecord) error
	// CountLogged returns the total number of logged calls.
	CountLogged(ctx context.Context) (int, error)
	// RecentCalls returns the most recently logged rows, newest first.
	RecentCalls(ctx context.Context, limit int) ([]events.LogRecord, error)
	Close()
}
