// Package eventstore records build history as an append-only event log and
// optionally publishes build outcomes to NATS.
package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, buildID, eventType string, payload []byte, metadata map[string]string) error

	// GetByBuildID retrieves all events for a specific build.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// RecentBuildIDs returns up to limit build IDs, most recent first.
	RecentBuildIDs(ctx context.Context, limit int) ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}
