package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"library-backend/internal/domains/user/model"
)

// VerifySession reports whether a token stamped with tokenVersion is still
// live, and whether the account is an admin right now. A deleted account or
// a bumped version both fail the check.
func (s *userService) VerifySession(ctx context.Context, userID uuid.UUID, tokenVersion int) (bool, error) {
	state, err := s.repo.GetSessionState(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return false, model.ErrTokenRevoked
	}
	if err != nil {
		return false, err
	}
	if state.TokenVersion != tokenVersion {
		return false, model.ErrTokenRevoked
	}
	return state.IsAdmin, nil
}
