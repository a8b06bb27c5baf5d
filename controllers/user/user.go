package user

import (
	"ecochain/controllers"
	"ecochain/logger"
	"ecochain/middleware"
	"ecochain/services/profile"
	userTypes "ecochain/types/user"
	"ecochain/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	profiles *profile.Service
}

func NewUserController(profiles *profile.Service) *UserController {
	return &UserController{profiles: profiles}
}

// GetProfile returns the signed-in user's profile
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	u, err := uc.profiles.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return controllers.Fail(c, "Error fetching user", err)
	}
	return controllers.OK(c, "User fetched successfully", u)
}

func (uc *UserController) SetAvailability(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	var req userTypes.AvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
		return controllers.BadRequest(c, "Invalid request body", nil)
	}
	if details := utils.ValidateStruct(req); details != nil {
		return controllers.BadRequest(c, utils.JoinDetails(details), details)
	}

	u, err := uc.profiles.SetAvailability(c.UserContext(), claims.UserID, *req.IsAvailable)
	if err != nil {
		return controllers.Fail(c, "Failed to update availability", err)
	}

	logger.Info("Picker " + u.ID + " availability changed")
	return controllers.OK(c, "Availability updated successfully", u)
}

func (uc *UserController) SetPincode(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	var req userTypes.PincodeRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Error parsing request body", err)
		return controllers.BadRequest(c, "Invalid request body", nil)
	}
	if details := utils.ValidateStruct(req); details != nil {
		return controllers.BadRequest(c, utils.JoinDetails(details), details)
	}

	u, err := uc.profiles.SetPincode(c.UserContext(), claims.UserID, req.Pincode)
	if err != nil {
		return controllers.Fail(c, "Failed to update pincode", err)
	}
	return controllers.OK(c, "Pincode updated successfully", u)
}
