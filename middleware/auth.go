package middleware

import (
	"errors"

	"ecochain/logger"
	userModel "ecochain/models/user"
	"ecochain/services/identity"
	"ecochain/types"
	"ecochain/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	localsUser  = "user"
	localsToken = "token"

	// AccessCookie carries the session token for browser clients.
	AccessCookie = "access"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*identity.Claims, error)
}

// RequireAuthentication accepts a Bearer token or the access cookie and
// stores the verified claims in the request locals.
func RequireAuthentication(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := utils.BearerToken(c)
		if err != nil {
			token = c.Cookies(AccessCookie)
		}
		if token == "" {
			return unauthorized(c, "Authorization token required")
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, identity.ErrExpiredToken):
				return unauthorized(c, "Session expired, please sign in again")
			case errors.Is(err, identity.ErrRevokedToken):
				return unauthorized(c, "Session has been signed out")
			default:
				logger.Warning("Rejected token: " + err.Error())
				return unauthorized(c, "Invalid or expired token")
			}
		}

		c.Locals(localsUser, claims)
		c.Locals(localsToken, token)
		return c.Next()
	}
}

// RequireUserType must run after RequireAuthentication.
func RequireUserType(allowed ...userModel.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := CurrentUser(c)
		if !ok {
			return unauthorized(c, "Invalid user claims")
		}
		for _, t := range allowed {
			if claims.UserType == string(t) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
			Message: "This action is not available for " + claims.UserType + " accounts",
			Status:  fiber.StatusForbidden,
		})
	}
}

// CurrentUser returns the claims stored by RequireAuthentication.
func CurrentUser(c *fiber.Ctx) (*identity.Claims, bool) {
	claims, ok := c.Locals(localsUser).(*identity.Claims)
	return claims, ok && claims != nil
}

// CurrentToken returns the raw token of the authenticated request.
func CurrentToken(c *fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
		Message: message,
		Status:  fiber.StatusUnauthorized,
	})
}
