package store

import (
	"context"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// OccupancyStore is the write-behind durability layer under the
// occupancy manager. The in-memory counters are authoritative; this
// store only absorbs snapshots so a restart does not zero a zone
// mid-day.
type OccupancyStore interface {
	LoadSnapshots(ctx context.Context) ([]types.OccupancySnapshot, error)
	SaveSnapshot(ctx context.Context, snap types.OccupancySnapshot) error

	LoadLocations(ctx context.Context) ([]types.MemberLocation, error)
	SaveLocation(ctx context.Context, loc types.MemberLocation) error
	DeleteLocation(ctx context.Context, memberID string) error
}
