package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
)

func (s *Store) CreateInvite(ctx context.Context, inv *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "CreateInvite"); err != nil {
		return err
	}
	for _, existing := range s.invites {
		if existing.Code == inv.Code {
			return duplicate("invite code", inv.Code)
		}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = s.timestamp()
	copied := *inv
	s.invites[inv.ID] = &copied
	return nil
}

func (s *Store) ListInvites(ctx context.Context) ([]models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "ListInvites"); err != nil {
		return nil, err
	}
	out := make([]models.Invite, 0, len(s.invites))
	for _, inv := range s.invites {
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) FindInviteByCode(ctx context.Context, code string) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "FindInviteByCode"); err != nil {
		return nil, err
	}
	for _, inv := range s.invites {
		if inv.Code == code {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, notFound("invite", code)
}

func (s *Store) SetInviteActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "SetInviteActive"); err != nil {
		return err
	}
	inv, ok := s.invites[id]
	if !ok {
		return notFound("invite", id)
	}
	inv.IsActive = active
	return nil
}

func (s *Store) DeleteInvite(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "DeleteInvite"); err != nil {
		return err
	}
	if _, ok := s.invites[id]; !ok {
		return notFound("invite", id)
	}
	delete(s.invites, id)
	return nil
}

// RedeemInvite marks the invite used and creates the person atomically. It
// fails with errs.ErrConflict if the invite was already used.
func (s *Store) RedeemInvite(ctx context.Context, inviteID uuid.UUID, person *models.Person, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(ctx, "RedeemInvite"); err != nil {
		return err
	}
	inv, ok := s.invites[inviteID]
	if !ok {
		return notFound("invite", inviteID)
	}
	if inv.UsedAt != nil {
		return fmt.Errorf("invite %s already used: %w", inv.Code, errs.ErrConflict)
	}
	if err := s.insertPerson(person); err != nil {
		return err
	}
	used := usedAt
	inv.UsedAt = &used
	return nil
}
