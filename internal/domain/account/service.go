package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetOrCreate returns the caller's billing account, creating the empty
// row on first contact.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Account, error) {
	acc, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load account")
		return nil, err
	}

	if err := s.repo.Ensure(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to create account")
		return nil, err
	}
	return s.repo.GetByUserID(ctx, userID)
}
