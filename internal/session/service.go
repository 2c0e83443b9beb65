package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/capturedeck/capturedeck/internal/models"
	"github.com/capturedeck/capturedeck/pkg/clock"
)

type Service struct {
	store            Store
	memberships      MembershipReader
	clock            clock.Clock
	ttl              time.Duration
	refreshThreshold time.Duration
}

func NewService(store Store, memberships MembershipReader, clk clock.Clock, ttl, refreshThreshold time.Duration) *Service {
	return &Service{
		store:            store,
		memberships:      memberships,
		clock:            clk,
		ttl:              ttl,
		refreshThreshold: refreshThreshold,
	}
}

// Create opens a session for the user. When orgID is nil the session
// starts in the user's personal organization, falling back to the first
// membership; an explicit orgID must match an existing membership.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, orgID *uuid.UUID) (*models.UserSession, error) {
	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, ErrNoMemberships
	}

	var current uuid.UUID
	if orgID != nil {
		found := false
		for i := range memberships {
			if memberships[i].OrganizationID == *orgID {
				found = true
				break
			}
		}
		if !found {
			return nil, ErrNotAMember
		}
		current = *orgID
	} else {
		current = memberships[0].OrganizationID
		for i := range memberships {
			if memberships[i].IsPersonalOrg {
				current = memberships[i].OrganizationID
				break
			}
		}
	}

	now := s.clock.Now()
	sess := &models.UserSession{
		ID:                    uuid.New(),
		UserID:                userID,
		CurrentOrganizationID: current,
		CreatedAt:             now,
		ExpiresAt:             now.Add(s.ttl),
		LastActiveAt:          now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	slog.Info("session created", "session_id", sess.ID, "user_id", userID, "organization_id", current)
	return sess, nil
}

// Validate returns the session when present and unexpired, nil
// otherwise. Absence and expiry are normal outcomes, not errors.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*models.UserSession, error) {
	sess, err := s.store.GetByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		return nil, nil
	}
	return sess, nil
}

// Refresh slides the activity window: it writes lastActiveAt only once
// the threshold has elapsed, so frequent polling does not turn into a
// write per request. Returns whether a write occurred.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID) (bool, error) {
	sess, err := s.store.GetByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	if now.Sub(sess.LastActiveAt) < s.refreshThreshold {
		return false, nil
	}
	if err := s.store.UpdateLastActive(ctx, id, now); err != nil {
		return false, err
	}
	return true, nil
}

// SwitchOrganization re-validates membership before moving the session.
func (s *Service) SwitchOrganization(ctx context.Context, sessionID, orgID uuid.UUID) error {
	sess, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := s.memberships.GetMembership(ctx, sess.UserID, orgID); err != nil {
		return ErrNotAMember
	}
	return s.store.UpdateOrganization(ctx, sessionID, orgID)
}

// Revoke is idempotent: deleting an absent session is success.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return s.store.DeleteByUser(ctx, userID)
}

// CleanupExpired purges sessions past their expiry. It runs from the
// worker's periodic sweep, not per request.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("expired sessions purged", "count", n)
	}
	return n, nil
}
