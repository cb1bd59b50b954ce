package memory

import (
	"context"
	"sync"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// OccupancyStore keeps occupancy snapshots and member locations in
// memory. Dev/test stand-in for the sqlite write-behind store.
type OccupancyStore struct {
	mu        sync.Mutex
	snapshots map[string]types.OccupancySnapshot
	locations map[string]types.MemberLocation
}

func NewOccupancyStore() *OccupancyStore {
	return &OccupancyStore{
		snapshots: make(map[string]types.OccupancySnapshot),
		locations: make(map[string]types.MemberLocation),
	}
}

func (s *OccupancyStore) LoadSnapshots(_ context.Context) ([]types.OccupancySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.OccupancySnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	return out, nil
}

func (s *OccupancyStore) SaveSnapshot(_ context.Context, snap types.OccupancySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ZoneID] = snap
	return nil
}

func (s *OccupancyStore) LoadLocations(_ context.Context) ([]types.MemberLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.MemberLocation, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, loc)
	}
	return out, nil
}

func (s *OccupancyStore) SaveLocation(_ context.Context, loc types.MemberLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.MemberID] = loc
	return nil
}

func (s *OccupancyStore) DeleteLocation(_ context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locations, memberID)
	return nil
}
