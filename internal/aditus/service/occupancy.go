package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// zoneCell is the single serialization point for one zone's headcount.
// Its mutex covers the capacity check and the increment so two entry
// lanes on the same zone cannot both take the last slot.
type zoneCell struct {
	mu          sync.Mutex
	count       int
	peakCount   int
	peakAt      time.Time
	lastEntryAt time.Time
	lastExitAt  time.Time
}

func (c *zoneCell) snapshot(zoneID string) types.OccupancySnapshot {
	snap := types.OccupancySnapshot{
		ZoneID:    zoneID,
		Count:     c.count,
		PeakCount: c.peakCount,
	}
	if !c.peakAt.IsZero() {
		t := c.peakAt
		snap.PeakAt = &t
	}
	if !c.lastEntryAt.IsZero() {
		t := c.lastEntryAt
		snap.LastEntryAt = &t
	}
	if !c.lastExitAt.IsZero() {
		t := c.lastExitAt
		snap.LastExitAt = &t
	}
	return snap
}

// OccupancyManager owns every zone's live headcount and every member's
// current location. The in-memory cells are authoritative; the optional
// store absorbs write-behind snapshots for restart recovery, off the
// decision path.
type OccupancyManager struct {
	mu        sync.RWMutex // guards the maps, not the counters
	cells     map[string]*zoneCell
	locations map[string]types.MemberLocation

	store  store.OccupancyStore // nil disables persistence
	logger zerolog.Logger
}

func NewOccupancyManager(st store.OccupancyStore, logger zerolog.Logger) *OccupancyManager {
	return &OccupancyManager{
		cells:     make(map[string]*zoneCell),
		locations: make(map[string]types.MemberLocation),
		store:     st,
		logger:    logger,
	}
}

// Restore loads persisted counts and locations. Call once at startup,
// before the manager is shared.
func (m *OccupancyManager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	snaps, err := m.store.LoadSnapshots(ctx)
	if err != nil {
		return err
	}
	locs, err := m.store.LoadLocations(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		c := &zoneCell{count: s.Count, peakCount: s.PeakCount}
		if s.PeakAt != nil {
			c.peakAt = *s.PeakAt
		}
		if s.LastEntryAt != nil {
			c.lastEntryAt = *s.LastEntryAt
		}
		if s.LastExitAt != nil {
			c.lastExitAt = *s.LastExitAt
		}
		m.cells[s.ZoneID] = c
	}
	for _, l := range locs {
		m.locations[l.MemberID] = l
	}
	return nil
}

func (m *OccupancyManager) cell(zoneID string) *zoneCell {
	m.mu.RLock()
	c, ok := m.cells[zoneID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.cells[zoneID]; ok {
		return c
	}
	c = &zoneCell{}
	m.cells[zoneID] = c
	return c
}

// TryEnter admits a member into the zone unless the zone is at its
// configured maximum. The capacity check and the increment happen under
// the zone's own lock; zones never contend with each other. On success
// the member's current location is overwritten.
func (m *OccupancyManager) TryEnter(zone types.Zone, memberID string, now time.Time) bool {
	c := m.cell(zone.ID)

	c.mu.Lock()
	if zone.MaxOccupancy != nil && c.count >= *zone.MaxOccupancy {
		c.mu.Unlock()
		return false
	}
	c.count++
	c.lastEntryAt = now
	if c.count > c.peakCount {
		c.peakCount = c.count
		c.peakAt = now
	}
	snap := c.snapshot(zone.ID)
	c.mu.Unlock()

	loc := types.MemberLocation{MemberID: memberID, ZoneID: zone.ID, EnteredAt: now}
	m.mu.Lock()
	m.locations[memberID] = loc
	m.mu.Unlock()

	m.persistSnapshot(snap)
	m.persistLocation(loc)
	return true
}

// Exit decrements the zone's count, never below zero: a missed entry
// elsewhere must not poison the counter. Exits cannot be rejected.
func (m *OccupancyManager) Exit(zoneID, memberID string, now time.Time) {
	c := m.cell(zoneID)

	c.mu.Lock()
	if c.count > 0 {
		c.count--
	}
	c.lastExitAt = now
	snap := c.snapshot(zoneID)
	c.mu.Unlock()

	m.mu.Lock()
	if loc, ok := m.locations[memberID]; ok && loc.ZoneID == zoneID {
		delete(m.locations, memberID)
		m.mu.Unlock()
		m.deleteLocation(memberID)
	} else {
		m.mu.Unlock()
	}

	m.persistSnapshot(snap)
}

// Snapshot returns the zone's current occupancy. ok is false when the
// zone has never seen traffic.
func (m *OccupancyManager) Snapshot(zoneID string) (types.OccupancySnapshot, bool) {
	m.mu.RLock()
	c, ok := m.cells[zoneID]
	m.mu.RUnlock()
	if !ok {
		return types.OccupancySnapshot{ZoneID: zoneID}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(zoneID), true
}

func (m *OccupancyManager) Snapshots() []types.OccupancySnapshot {
	m.mu.RLock()
	ids := make([]string, 0, len(m.cells))
	for id := range m.cells {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	out := make([]types.OccupancySnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := m.Snapshot(id); ok {
			out = append(out, snap)
		}
	}
	return out
}

// Location returns the member's current zone, if any.
func (m *OccupancyManager) Location(memberID string) (types.MemberLocation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[memberID]
	return loc, ok
}

// ResetDailyPeaks rebases every zone's peak to its current count: the
// new peak is the live count, with a peak time of now when the zone is
// occupied and unset otherwise.
func (m *OccupancyManager) ResetDailyPeaks(now time.Time) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.cells))
	for id := range m.cells {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		c := m.cell(id)
		c.mu.Lock()
		c.peakCount = c.count
		if c.count > 0 {
			c.peakAt = now
		} else {
			c.peakAt = time.Time{}
		}
		snap := c.snapshot(id)
		c.mu.Unlock()
		m.persistSnapshot(snap)
	}
}

// Flush writes every zone's current snapshot and every live member
// location synchronously. Used at shutdown.
func (m *OccupancyManager) Flush(ctx context.Context) {
	if m.store == nil {
		return
	}
	for _, snap := range m.Snapshots() {
		if err := m.store.SaveSnapshot(ctx, snap); err != nil {
			m.logger.Error().Err(err).Str("zone_id", snap.ZoneID).Msg("occupancy flush failed")
		}
	}

	m.mu.RLock()
	locs := make([]types.MemberLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		locs = append(locs, loc)
	}
	m.mu.RUnlock()
	for _, loc := range locs {
		if err := m.store.SaveLocation(ctx, loc); err != nil {
			m.logger.Error().Err(err).Str("member_id", loc.MemberID).Msg("location flush failed")
		}
	}
}

// Persistence is fire-and-forget relative to the decision path; a store
// failure is logged and the in-memory count remains authoritative.

func (m *OccupancyManager) persistSnapshot(snap types.OccupancySnapshot) {
	if m.store == nil {
		return
	}
	go func() {
		if err := m.store.SaveSnapshot(context.Background(), snap); err != nil {
			m.logger.Error().Err(err).Str("zone_id", snap.ZoneID).Msg("occupancy snapshot write failed")
		}
	}()
}

func (m *OccupancyManager) persistLocation(loc types.MemberLocation) {
	if m.store == nil {
		return
	}
	go func() {
		if err := m.store.SaveLocation(context.Background(), loc); err != nil {
			m.logger.Error().Err(err).Str("member_id", loc.MemberID).Msg("member location write failed")
		}
	}()
}

func (m *OccupancyManager) deleteLocation(memberID string) {
	if m.store == nil {
		return
	}
	go func() {
		if err := m.store.DeleteLocation(context.Background(), memberID); err != nil {
			m.logger.Error().Err(err).Str("member_id", memberID).Msg("member location delete failed")
		}
	}()
}
