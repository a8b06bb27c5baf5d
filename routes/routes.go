package routes

import (
	"ecochain/controllers/auth"
	"ecochain/controllers/pickup"
	"ecochain/controllers/server"
	"ecochain/controllers/user"
	"ecochain/logger"
	"ecochain/middleware"
	userModel "ecochain/models/user"
	"ecochain/services/identity"
	"ecochain/services/lifecycle"
	"ecochain/services/profile"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Identity     *identity.Service
	Profiles     *profile.Service
	Lifecycle    *lifecycle.Manager
	Store        server.Pinger
	AsyncLogger  *logger.AsyncLogger
	SecureCookie bool
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	authController := auth.NewAuthController(deps.Identity, deps.SecureCookie)
	userController := user.NewUserController(deps.Profiles)
	pickupController := pickup.NewPickupController(deps.Lifecycle, deps.Profiles)
	healthController := server.NewHealthController(deps.Store)

	app.Use(middleware.Metrics())
	if deps.AsyncLogger != nil {
		app.Use(middleware.RequestLogger(deps.AsyncLogger))
	}

	app.Get("/health", healthController.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	requireAuth := middleware.RequireAuthentication(deps.Identity)
	pickerOnly := middleware.RequireUserType(userModel.TypePicker)
	generatorOnly := middleware.RequireUserType(userModel.TypeGenerator)

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	api := app.Group("/api")
	api.Post("/auth/signup", authController.SignUp)
	api.Post("/auth/signin", authController.SignIn)

	/*=============================================================================
	| Protected Routes
	===============================================================================*/
	api.Post("/auth/signout", requireAuth, authController.SignOut)

	profileGroup := api.Group("/profile", requireAuth)
	profileGroup.Get("/", userController.GetProfile)
	profileGroup.Put("/availability", pickerOnly, userController.SetAvailability)
	profileGroup.Put("/pincode", pickerOnly, userController.SetPincode)

	/*=============================================================================
	| Pickup Routes
	===============================================================================*/
	pickupGroup := api.Group("/pickups", requireAuth)

	// Generator
	pickupGroup.Post("/", generatorOnly, pickupController.Schedule)
	pickupGroup.Get("/mine", generatorOnly, pickupController.Mine)
	pickupGroup.Delete("/:id", generatorOnly, pickupController.Cancel)
	pickupGroup.Post("/:id/rate-picker", generatorOnly, pickupController.RatePicker)

	// Picker
	pickupGroup.Get("/available", pickerOnly, pickupController.Available)
	pickupGroup.Get("/assigned", pickerOnly, pickupController.Assigned)
	pickupGroup.Post("/:id/assign", pickerOnly, pickupController.Assign)
	pickupGroup.Post("/:id/complete", pickerOnly, pickupController.Complete)
	pickupGroup.Post("/:id/rate-generator", pickerOnly, pickupController.RateGenerator)

	pickupGroup.Get("/:id", pickupController.Show)
}
