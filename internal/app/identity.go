package app

import (
	"context"
	"fmt"

	"pawtrail/internal/domain"
)

type IdentityService struct {
	users domain.UserRepository
}

func NewIdentityService(users domain.UserRepository) *IdentityService {
	return &IdentityService{users: users}
}

func (s *IdentityService) List(ctx context.Context, userID string) ([]domain.Identity, error) {
	return s.users.ListIdentities(ctx, userID)
}

func (s *IdentityService) Link(ctx context.Context, userID string, provider domain.IdentityProvider, subject string) (domain.Identity, error) {
	if !provider.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, provider)
	}
	if subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}
	if existing, err := s.users.GetIdentity(ctx, provider, subject); err == nil {
		if existing.UserID != userID {
			// already claimed by another account
			return domain.Identity{}, domain.ErrConflict
		}
		return existing, nil
	}
	return s.users.LinkIdentity(ctx, domain.Identity{UserID: userID, Provider: provider, Subject: subject})
}

// Unlink removes an identity, refusing to strand the account: the last
// identity may only go when a password remains.
func (s *IdentityService) Unlink(ctx context.Context, userID string, identityID int64) error {
	ids, err := s.users.ListIdentities(ctx, userID)
	if err != nil {
		return err
	}
	var found bool
	for _, id := range ids {
		if id.ID == identityID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrNotFound
	}
	if len(ids) == 1 {
		u, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !u.HasPassword() {
			return fmt.Errorf("%w: cannot remove the last sign-in method", domain.ErrConflict)
		}
	}
	return s.users.UnlinkIdentity(ctx, userID, identityID)
}
