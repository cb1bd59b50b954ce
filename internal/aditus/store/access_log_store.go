package store

import (
	"context"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// AccessLogStore persists decisions as an append-only audit log.
// Append must be the only write path; List serves the operational query
// surface ordered newest first.
type AccessLogStore interface {
	Append(ctx context.Context, entry types.AccessLogEntry) error
	List(ctx context.Context, filter types.AccessLogFilter) ([]types.AccessLogEntry, error)

	// PruneOlderThan deletes entries with OccurredAt before cutoff and
	// returns how many were removed. Used only by the retention pruner.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
