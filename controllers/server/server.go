package server

import (
	"context"
	"time"

	"ecochain/logger"
	"ecochain/types"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	store Pinger
}

func NewHealthController(store Pinger) *HealthController {
	return &HealthController{store: store}
}

// Health answers 200 when the store responds within two seconds, 503 otherwise.
func (h *HealthController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.Warning("Health check failed: " + err.Error())
		return c.Status(fiber.StatusServiceUnavailable).JSON(types.ApiResponse{
			Message: "Document store unavailable",
			Status:  fiber.StatusServiceUnavailable,
		})
	}
	return c.Status(fiber.StatusOK).JSON(types.ApiResponse{
		Message: "OK",
		Status:  fiber.StatusOK,
	})
}
