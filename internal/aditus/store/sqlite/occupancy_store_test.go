package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aditus-access/aditus/server/internal/aditus/store/sqlite"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

func TestOccupancyStore_SnapshotUpsertAndReload(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	st := sqlite.NewOccupancyStore(conn, writer)
	ctx := context.Background()

	now := time.Now().UTC().UnixMilli()
	_, err := conn.ExecContext(ctx, `
INSERT INTO zones(zone_id, tenant_id, name, zone_type, created_at_ms, updated_at_ms)
VALUES ('gym-floor', 'tenant-1', 'Gym Floor', 'GYM_FLOOR', ?, ?);`, now, now)
	require.NoError(t, err)

	peakAt := time.Date(2026, time.March, 6, 18, 0, 0, 0, time.UTC)
	snap := types.OccupancySnapshot{
		ZoneID: "gym-floor", Count: 7, PeakCount: 12, PeakAt: &peakAt,
	}
	require.NoError(t, st.SaveSnapshot(ctx, snap))

	// Upsert overwrites the same row.
	snap.Count = 8
	require.NoError(t, st.SaveSnapshot(ctx, snap))

	loaded, err := st.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, 8, loaded[0].Count)
	require.Equal(t, 12, loaded[0].PeakCount)
	require.NotNil(t, loaded[0].PeakAt)
	require.Equal(t, peakAt, *loaded[0].PeakAt)
	require.Nil(t, loaded[0].LastEntryAt)
}

func TestOccupancyStore_LocationLifecycle(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	st := sqlite.NewOccupancyStore(conn, writer)
	ctx := context.Background()

	entered := time.Date(2026, time.March, 6, 9, 30, 0, 0, time.UTC)
	require.NoError(t, st.SaveLocation(ctx, types.MemberLocation{
		MemberID: "mem-1", ZoneID: "lobby", EnteredAt: entered,
	}))

	// Overwrite on zone change.
	require.NoError(t, st.SaveLocation(ctx, types.MemberLocation{
		MemberID: "mem-1", ZoneID: "gym-floor", EnteredAt: entered.Add(time.Minute),
	}))

	locs, err := st.LoadLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.Equal(t, "gym-floor", locs[0].ZoneID)

	require.NoError(t, st.DeleteLocation(ctx, "mem-1"))
	locs, err = st.LoadLocations(ctx)
	require.NoError(t, err)
	require.Empty(t, locs)
}
