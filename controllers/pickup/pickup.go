package pickup

import (
	"context"
	"strings"

	"ecochain/controllers"
	"ecochain/logger"
	"ecochain/middleware"
	pickupModel "ecochain/models/pickup"
	"ecochain/services/lifecycle"
	"ecochain/services/profile"
	"ecochain/types"
	pickupTypes "ecochain/types/pickup"
	"ecochain/utils"

	"github.com/gofiber/fiber/v2"
)

// PickupController handles pickup-related HTTP requests
type PickupController struct {
	lifecycle *lifecycle.Manager
	profiles  *profile.Service
}

// NewPickupController creates a new pickup controller
func NewPickupController(manager *lifecycle.Manager, profiles *profile.Service) *PickupController {
	return &PickupController{lifecycle: manager, profiles: profiles}
}

// Schedule creates a pickup request for the signed-in generator
func (pc *PickupController) Schedule(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	var req pickupTypes.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return controllers.BadRequest(c, "Invalid request body", nil)
	}
	if details := utils.ValidateStruct(req); details != nil {
		return controllers.BadRequest(c, utils.JoinDetails(details), details)
	}

	pickupDate, err := utils.ParseDate(req.PickupDate)
	if err != nil {
		return controllers.BadRequest(c, "pickup_date must be a date like 2006-01-02", nil)
	}

	// The generator's profile address is the fallback when no address is given.
	userAddress := strings.TrimSpace(req.UserAddress)
	if userAddress == "" {
		if u, err := pc.profiles.Get(c.UserContext(), claims.UserID); err == nil {
			userAddress = u.Address
		}
	}

	p, err := pc.lifecycle.Schedule(c.UserContext(), claims.UserID, lifecycle.ScheduleInput{
		WasteTypes: req.WasteTypes,
		Quantity:   pickupModel.Quantity(req.Quantity),
		Location: pickupModel.Location{
			Lat:     req.Location.Lat,
			Lng:     req.Location.Lng,
			Address: req.Location.Address,
		},
		PickupDate:  pickupDate,
		UserAddress: userAddress,
		Pincode:     req.Pincode,
	})
	if err != nil {
		return controllers.Fail(c, "Failed to schedule pickup", err)
	}

	logger.Success("Pickup scheduled: " + p.ID + " by " + claims.UserID)
	return c.Status(fiber.StatusCreated).JSON(types.ApiResponse{
		Message: "Pickup scheduled successfully",
		Status:  fiber.StatusCreated,
		Data:    p,
	})
}

// Mine lists the generator's pickups
func (pc *PickupController) Mine(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	pickups, err := pc.lifecycle.ListForGenerator(c.UserContext(), claims.UserID)
	if err != nil {
		return controllers.Fail(c, "Failed to list pickups", err)
	}
	return controllers.OK(c, "Pickups retrieved successfully", pickups)
}

// Cancel withdraws a pending pickup
func (pc *PickupController) Cancel(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)
	id := c.Params("id")

	if err := pc.lifecycle.Cancel(c.UserContext(), id, claims.UserID); err != nil {
		return controllers.Fail(c, "Failed to cancel pickup "+id, err)
	}

	logger.Success("Pickup withdrawn: " + id)
	return controllers.OK(c, "Pickup cancelled successfully", nil)
}

// Available lists pending pickups in the picker's pincode
func (pc *PickupController) Available(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	picker, err := pc.profiles.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return controllers.Fail(c, "Failed to load picker profile", err)
	}

	pickups, err := pc.lifecycle.ListAvailable(c.UserContext(), picker)
	if err != nil {
		return controllers.Fail(c, "Failed to list available pickups", err)
	}

	message := "Available pickups retrieved successfully"
	switch {
	case !picker.Available():
		message = "You are currently unavailable"
	case picker.Pincode == nil || *picker.Pincode == "":
		message = "Set your pincode to see pickup requests"
	}
	return controllers.OK(c, message, pickups)
}

// Assigned lists the picker's pickups by status, Assigned by default
func (pc *PickupController) Assigned(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)
	status := pickupModel.Status(c.Query("status", string(pickupModel.StatusAssigned)))

	pickups, err := pc.lifecycle.ListForPicker(c.UserContext(), claims.UserID, status)
	if err != nil {
		return controllers.Fail(c, "Failed to list assigned pickups", err)
	}
	return controllers.OK(c, "Pickups retrieved successfully", pickups)
}

// Assign accepts a pending pickup for the signed-in picker
func (pc *PickupController) Assign(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)
	id := c.Params("id")

	p, err := pc.lifecycle.Assign(c.UserContext(), id, claims.UserID)
	if err != nil {
		return controllers.Fail(c, "Failed to accept pickup "+id, err)
	}

	logger.Success("Pickup " + id + " accepted by " + claims.UserID)
	return controllers.OK(c, "Pickup accepted successfully", p)
}

// Complete marks an assigned pickup done and issues rewards
func (pc *PickupController) Complete(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)
	id := c.Params("id")

	p, err := pc.lifecycle.Complete(c.UserContext(), id, claims.UserID)
	if err != nil {
		return controllers.Fail(c, "Failed to complete pickup "+id, err)
	}

	logger.Success("Pickup " + id + " completed by " + claims.UserID)
	return controllers.OK(c, "Pickup completed successfully", p)
}

// RateGenerator is the picker rating the generator
func (pc *PickupController) RateGenerator(c *fiber.Ctx) error {
	return pc.rate(c, pc.lifecycle.RateGenerator)
}

// RatePicker is the generator rating the picker
func (pc *PickupController) RatePicker(c *fiber.Ctx) error {
	return pc.rate(c, pc.lifecycle.RatePicker)
}

type rateFunc func(ctx context.Context, pickupID, raterID string, rating int, comment string) (*pickupModel.Pickup, error)

func (pc *PickupController) rate(c *fiber.Ctx, rate rateFunc) error {
	claims, _ := middleware.CurrentUser(c)
	id := c.Params("id")

	var req pickupTypes.RatingRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return controllers.BadRequest(c, "Invalid request body", nil)
	}
	if details := utils.ValidateStruct(req); details != nil {
		return controllers.BadRequest(c, utils.JoinDetails(details), details)
	}

	p, err := rate(c.UserContext(), id, claims.UserID, req.Rating, req.Comment)
	if err != nil {
		return controllers.Fail(c, "Failed to rate pickup "+id, err)
	}
	return controllers.OK(c, "Rating submitted successfully", p)
}

// Show returns a single pickup to its generator, its assignee or a picker in its pincode
func (pc *PickupController) Show(c *fiber.Ctx) error {
	claims, _ := middleware.CurrentUser(c)

	viewer, err := pc.profiles.Get(c.UserContext(), claims.UserID)
	if err != nil {
		return controllers.Fail(c, "Failed to load profile", err)
	}

	p, err := pc.lifecycle.View(c.UserContext(), c.Params("id"), viewer)
	if err != nil {
		return controllers.Fail(c, "Failed to load pickup", err)
	}
	return controllers.OK(c, "Pickup retrieved successfully", p)
}
