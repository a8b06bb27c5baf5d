package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	userModel "ecochain/models/user"
	"ecochain/services/lifecycle"
	"ecochain/store"
)

// Users is the slice of the document store the profile service needs.
type Users interface {
	GetUser(ctx context.Context, id string) (*userModel.User, error)
	UpdateUser(ctx context.Context, id string, fields store.Fields) error
}

var ErrUserNotFound = errors.New("user not found")

type Service struct {
	users Users
}

func NewService(users Users) *Service {
	return &Service{users: users}
}

func (s *Service) Get(ctx context.Context, userID string) (*userModel.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w: %w", lifecycle.ErrStoreUnavailable, err)
	}
	return u, nil
}

// SetAvailability toggles whether a picker is shown pending pickups.
func (s *Service) SetAvailability(ctx context.Context, userID string, available bool) (*userModel.User, error) {
	u, err := s.picker(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, userID, store.Fields{userModel.FieldIsAvailable: available}); err != nil {
		return nil, err
	}
	u.IsAvailable = &available
	return u, nil
}

// SetPincode sets the area a picker receives pickups from.
func (s *Service) SetPincode(ctx context.Context, userID, pincode string) (*userModel.User, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" || len(pincode) > lifecycle.MaxPincodeLength {
		return nil, fmt.Errorf("%w: pincode must be 1 to %d characters", lifecycle.ErrValidation, lifecycle.MaxPincodeLength)
	}

	u, err := s.picker(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, userID, store.Fields{userModel.FieldPincode: pincode}); err != nil {
		return nil, err
	}
	u.Pincode = &pincode
	return u, nil
}

func (s *Service) picker(ctx context.Context, userID string) (*userModel.User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsPicker() {
		return nil, fmt.Errorf("%w: only pickers can change this setting", lifecycle.ErrAuthorization)
	}
	return u, nil
}

func (s *Service) update(ctx context.Context, userID string, fields store.Fields) error {
	err := s.users.UpdateUser(ctx, userID, fields)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update profile: %w: %w", lifecycle.ErrStoreUnavailable, err)
	}
	return nil
}
