package identity

import (
	"context"
)

// Service answers questions about account holders for the ledger and the
// HTTP layer.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindByID returns the user with the given id.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// DisplayName returns "First Last" for the owner, used in transfer narrations.
func (s *Service) DisplayName(ctx context.Context, ownerID string) (string, error) {
	user, err := s.repo.FindByID(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return user.FullName(), nil
}
