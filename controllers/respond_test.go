package controllers

import (
	"errors"
	"fmt"
	"testing"

	"ecochain/services/identity"
	"ecochain/services/lifecycle"
	"ecochain/services/profile"
	"ecochain/store"

	"github.com/gofiber/fiber/v2"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: quantity is required", lifecycle.ErrValidation), fiber.StatusBadRequest},
		{identity.ErrInvalidInput, fiber.StatusBadRequest},
		{lifecycle.ErrNotFound, fiber.StatusNotFound},
		{profile.ErrUserNotFound, fiber.StatusNotFound},
		{lifecycle.ErrAuthorization, fiber.StatusForbidden},
		{lifecycle.ErrInvalidState, fiber.StatusConflict},
		{lifecycle.ErrAlreadyAssigned, fiber.StatusConflict},
		{lifecycle.ErrAlreadyRated, fiber.StatusConflict},
		{identity.ErrEmailInUse, fiber.StatusConflict},
		{identity.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{identity.ErrRevokedToken, fiber.StatusUnauthorized},
		{fmt.Errorf("assign: %w: %w", lifecycle.ErrStoreUnavailable, errors.New("dial tcp")), fiber.StatusServiceUnavailable},
		{fmt.Errorf("create user: %w", store.ErrUnavailable), fiber.StatusServiceUnavailable},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got, _ := ErrorStatus(tt.err); got != tt.want {
				t.Errorf("ErrorStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestValidationMessageIsPassedThrough(t *testing.T) {
	err := fmt.Errorf("%w: pincode must be 1 to 6 characters", lifecycle.ErrValidation)
	if _, msg := ErrorStatus(err); msg != err.Error() {
		t.Errorf("message = %q", msg)
	}
}
