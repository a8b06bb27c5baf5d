// Package controllers holds the helpers shared by the HTTP controllers.
package controllers

import (
	"errors"

	"ecochain/logger"
	"ecochain/services/identity"
	"ecochain/services/lifecycle"
	"ecochain/services/profile"
	"ecochain/store"
	"ecochain/types"
	"ecochain/utils"

	"github.com/gofiber/fiber/v2"
)

// ErrorStatus maps service errors onto an HTTP status and a client message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrValidation), errors.Is(err, identity.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, lifecycle.ErrNotFound):
		return fiber.StatusNotFound, "Pickup not found"
	case errors.Is(err, profile.ErrUserNotFound):
		return fiber.StatusNotFound, "User not found"
	case errors.Is(err, lifecycle.ErrAuthorization):
		return fiber.StatusForbidden, "You are not allowed to perform this action"
	case errors.Is(err, lifecycle.ErrAlreadyAssigned):
		return fiber.StatusConflict, "Pickup has already been accepted by another picker"
	case errors.Is(err, lifecycle.ErrAlreadyRated):
		return fiber.StatusConflict, "Rating has already been submitted"
	case errors.Is(err, lifecycle.ErrInvalidState):
		return fiber.StatusConflict, "Pickup is not in a state that allows this action"
	case errors.Is(err, identity.ErrEmailInUse):
		return fiber.StatusConflict, "Email is already registered"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrExpiredToken), errors.Is(err, identity.ErrRevokedToken):
		return fiber.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, lifecycle.ErrStoreUnavailable), errors.Is(err, store.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "Service temporarily unavailable, please retry"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}

// Fail writes err as an ApiResponse. Server side failures are logged.
func Fail(c *fiber.Ctx, message string, err error) error {
	status, clientMessage := ErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error(message, err)
	} else {
		logger.Warning(message + ": " + err.Error())
	}
	return c.Status(status).JSON(types.ApiResponse{
		Message: clientMessage,
		Status:  status,
	})
}

// BadRequest writes a 400 with optional validation details.
func BadRequest(c *fiber.Ctx, message string, details []utils.ValidationDetail) error {
	resp := types.ApiResponse{
		Message: message,
		Status:  fiber.StatusBadRequest,
	}
	if len(details) > 0 {
		resp.Errors = details
	}
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}

// OK writes a 200 envelope.
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: message,
		Status:  fiber.StatusOK,
		Data:    data,
	})
}
