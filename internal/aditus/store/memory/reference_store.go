package memory

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

var ErrCredentialRevoked = errors.New("credential is revoked")

// ReferenceStore holds credentials, members, zones, devices and rules in
// memory. It backs tests and the dev environment, and implements every
// read-only reference interface in the store package.
type ReferenceStore struct {
	mu          sync.RWMutex
	credentials map[string]types.Credential
	members     map[string]types.Member
	zones       map[string]types.Zone
	devices     map[string]types.Device
	rules       []types.TimeRule
	seen        map[string]time.Time
}

func NewReferenceStore() *ReferenceStore {
	return &ReferenceStore{
		credentials: make(map[string]types.Credential),
		members:     make(map[string]types.Member),
		zones:       make(map[string]types.Zone),
		devices:     make(map[string]types.Device),
		seen:        make(map[string]time.Time),
	}
}

func (s *ReferenceStore) PutCredential(c types.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[c.ID] = c
}

func (s *ReferenceStore) PutMember(m types.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = m
}

func (s *ReferenceStore) PutZone(z types.Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[z.ID] = z
}

func (s *ReferenceStore) PutDevice(d types.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.ID] = d
}

func (s *ReferenceStore) PutRule(r types.TimeRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
}

func (s *ReferenceStore) FindByCard(_ context.Context, cardNumber, facilityCode string) (types.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if c.Kind != types.CredentialCard || c.CardNumber != cardNumber {
			continue
		}
		if facilityCode != "" && c.FacilityCode != "" && c.FacilityCode != facilityCode {
			continue
		}
		return c, true, nil
	}
	return types.Credential{}, false, nil
}

func (s *ReferenceStore) FindBySecret(_ context.Context, kind types.CredentialKind, secretHash []byte) (types.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if c.Kind == kind && bytes.Equal(c.SecretHash, secretHash) {
			return c, true, nil
		}
	}
	return types.Credential{}, false, nil
}

func (s *ReferenceStore) BiometricFor(_ context.Context, memberID string) (types.Credential, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if c.Kind == types.CredentialBiometric && c.MemberID == memberID {
			return c, true, nil
		}
	}
	return types.Credential{}, false, nil
}

func (s *ReferenceStore) UpdateStatus(_ context.Context, credentialID string, status types.CredentialStatus, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[credentialID]
	if !ok {
		return store.ErrCredentialNotFound
	}
	if !c.StatusTransitionAllowed(status) {
		return ErrCredentialRevoked
	}
	c.Status = status
	s.credentials[credentialID] = c
	return nil
}

func (s *ReferenceStore) GetMember(_ context.Context, memberID string) (types.Member, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	return m, ok, nil
}

func (s *ReferenceStore) GetZone(_ context.Context, zoneID string) (types.Zone, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[zoneID]
	return z, ok, nil
}

func (s *ReferenceStore) ListZones(_ context.Context) ([]types.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	return out, nil
}

func (s *ReferenceStore) GetDevice(_ context.Context, deviceID string) (types.Device, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	return d, ok, nil
}

func (s *ReferenceStore) MarkSeen(_ context.Context, deviceID string, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[deviceID] = t
	return nil
}

func (s *ReferenceStore) Candidates(_ context.Context, zoneID, planID, memberID string) ([]types.TimeRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.TimeRule
	for _, r := range s.rules {
		if !r.Active {
			continue
		}
		if r.ZoneID != nil && *r.ZoneID != zoneID {
			continue
		}
		if r.PlanID != nil && *r.PlanID != planID {
			continue
		}
		if r.MemberID != nil && *r.MemberID != memberID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
