package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aditus-access/aditus/server/internal/aditus/store"
	"github.com/aditus-access/aditus/server/internal/aditus/types"
)

var ErrMemberNotFound = errors.New("member not found")

// MembershipService is the boundary to the membership system. The
// engine only ever asks for a member's plan, gender, and whether the
// membership is in good standing.
type MembershipService interface {
	MemberPlan(ctx context.Context, memberID string) (string, error)
	MemberGender(ctx context.Context, memberID string) (types.Gender, error)
	MembershipActive(ctx context.Context, memberID string) (bool, error)
}

// StoreMembership serves membership queries from the member store.
type StoreMembership struct {
	members store.MemberStore
}

func NewStoreMembership(ms store.MemberStore) *StoreMembership {
	return &StoreMembership{members: ms}
}

func (s *StoreMembership) member(ctx context.Context, memberID string) (types.Member, error) {
	m, ok, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return types.Member{}, fmt.Errorf("get member %s: %w", memberID, err)
	}
	if !ok {
		return types.Member{}, ErrMemberNotFound
	}
	return m, nil
}

func (s *StoreMembership) MemberPlan(ctx context.Context, memberID string) (string, error) {
	m, err := s.member(ctx, memberID)
	if err != nil {
		return "", err
	}
	return m.PlanID, nil
}

func (s *StoreMembership) MemberGender(ctx context.Context, memberID string) (types.Gender, error) {
	m, err := s.member(ctx, memberID)
	if err != nil {
		return "", err
	}
	return m.Gender, nil
}

func (s *StoreMembership) MembershipActive(ctx context.Context, memberID string) (bool, error) {
	m, err := s.member(ctx, memberID)
	if err != nil {
		return false, err
	}
	return m.Active, nil
}
