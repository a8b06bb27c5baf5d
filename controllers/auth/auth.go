package auth

import (
	"strings"

	"ecochain/controllers"
	"ecochain/logger"
	"ecochain/middleware"
	userModel "ecochain/models/user"
	"ecochain/services/identity"
	"ecochain/types"
	authTypes "ecochain/types/auth"
	"ecochain/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	identity     *identity.Service
	secureCookie bool
}

func NewAuthController(service *identity.Service, secureCookie bool) *AuthController {
	return &AuthController{identity: service, secureCookie: secureCookie}
}

// Helper function to set the session cookie, secure only in production (HTTPS)
func (h *AuthController) setSecureCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Strict",
		MaxAge:   maxAge,
		Path:     "/",
	})
}

func (h *AuthController) SignUp(c *fiber.Ctx) error {
	var req authTypes.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
		return controllers.BadRequest(c, "Invalid request body", nil)
	}
	if details := utils.ValidateStruct(req); details != nil {
		return controllers.BadRequest(c, utils.JoinDetails(details), details)
	}

	session, err := h.identity.SignUp(c.UserContext(), identity.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		UserType: userModel.UserType(req.UserType),
	})
	if err != nil {
		return controllers.Fail(c, "Failed to sign up "+req.Email, err)
	}

	logger.Success("User signed up: " + session.User.ID + " (" + string(session.User.UserType) + ")")
	return h.respondWithSession(c, fiber.StatusCreated, "Account created successfully", session)
}

func (h *AuthController) SignIn(c *fiber.Ctx) error {
	var req authTypes.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
		return controllers.BadRequest(c, "Invalid request body", nil)
	}
	if details := utils.ValidateStruct(req); details != nil {
		return controllers.BadRequest(c, utils.JoinDetails(details), details)
	}

	session, err := h.identity.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return controllers.Fail(c, "Failed to sign in "+strings.ToLower(req.Email), err)
	}

	logger.Success("User signed in: " + session.User.ID)
	return h.respondWithSession(c, fiber.StatusOK, "Signed in successfully", session)
}

func (h *AuthController) SignOut(c *fiber.Ctx) error {
	if err := h.identity.SignOut(c.UserContext(), middleware.CurrentToken(c)); err != nil {
		return controllers.Fail(c, "Failed to sign out", err)
	}

	h.setSecureCookie(c, middleware.AccessCookie, "", -1) // Expire immediately
	return controllers.OK(c, "Signed out successfully", nil)
}

func (h *AuthController) respondWithSession(c *fiber.Ctx, status int, message string, session *identity.Session) error {
	h.setSecureCookie(c, middleware.AccessCookie, session.Token, int(h.identity.Expiry().Seconds()))

	return c.Status(status).JSON(types.ApiResponse{
		Message: message,
		Status:  status,
		Token:   session.Token,
		Data: authTypes.SessionResponse{
			UserID:    session.User.ID,
			UserType:  string(session.User.UserType),
			ExpiresAt: session.ExpiresAt.Unix(),
		},
	})
}
