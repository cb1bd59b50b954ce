package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

// AccessLogStore is an in-memory append-only audit log for tests and
// dev environments.
type AccessLogStore struct {
	mu      sync.Mutex
	entries []types.AccessLogEntry

	// FailAppends forces Append to return an error. Test-only knob for
	// exercising the best-effort audit path.
	FailAppends bool
}

type appendError struct{}

func (appendError) Error() string { return "append failed" }

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Append(_ context.Context, entry types.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppends {
		return appendError{}
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AccessLogStore) List(_ context.Context, f types.AccessLogFilter) ([]types.AccessLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []types.AccessLogEntry
	for i := len(s.entries) - 1; i >= 0; i-- { // newest first
		e := s.entries[i]
		if f.TenantID != "" && e.TenantID != f.TenantID {
			continue
		}
		if f.DeviceID != "" && e.DeviceID != f.DeviceID {
			continue
		}
		if f.ZoneID != "" && e.ZoneID != f.ZoneID {
			continue
		}
		if f.MemberID != "" && (e.MemberID == nil || *e.MemberID != f.MemberID) {
			continue
		}
		if f.Result != "" && e.Result != f.Result {
			continue
		}
		if f.From != nil && e.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && e.OccurredAt.After(*f.To) {
			continue
		}
		matched = append(matched, e)
	}

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// Entries returns a copy of everything recorded. Test-only helper.
func (s *AccessLogStore) Entries() []types.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
