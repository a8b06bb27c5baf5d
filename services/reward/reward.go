package reward

import (
	"context"
	"errors"
	"fmt"

	"ecochain/metrics"
)

// Points granted to each party when a pickup completes.
const Points = 10

var (
	ErrInvalidPoints = errors.New("reward points must be positive")
	ErrMissingUser   = errors.New("reward user id is required")
)

// Incrementer is the slice of the document store the issuer needs.
type Incrementer interface {
	IncrementPoints(ctx context.Context, userID string, delta int) error
}

// Service applies point rewards. It is not idempotent; callers gate it.
type Service struct {
	store Incrementer
}

func NewService(store Incrementer) *Service {
	return &Service{store: store}
}

// Reward atomically adds points to the user's balance.
func (s *Service) Reward(ctx context.Context, userID string, points int) error {
	if points <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPoints, points)
	}
	if userID == "" {
		return ErrMissingUser
	}
	if err := s.store.IncrementPoints(ctx, userID, points); err != nil {
		return fmt.Errorf("reward %d points to %s: %w", points, userID, err)
	}
	metrics.RewardsIssued.Inc()
	return nil
}
