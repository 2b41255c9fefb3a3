package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/sweet-shop/internal/api/http/handlers"
	"github.com/spec-kit/sweet-shop/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Prefix         string
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Sweets         *handlers.SweetsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Health and metrics routes stay at the root so
// they do not move with the API prefix.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(cfg.Prefix)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, auth.RequireRoles(), cfg.Auth.Logout)

	sweets := api.Group("/sweets", cfg.AuthMiddleware.Handle)
	sweets.Get("/", auth.RequireRoles(), cfg.Sweets.List)
	sweets.Post("/", auth.RequireAdmin(), cfg.Sweets.Create)
	// Any authenticated role may edit; only create, delete and restock are
	// admin-only.
	sweets.Put("/:id", auth.RequireRoles(), cfg.Sweets.Update)
	sweets.Delete("/:id", auth.RequireAdmin(), cfg.Sweets.Delete)
	sweets.Post("/:id/purchase", auth.RequireRoles(), cfg.Sweets.Purchase)
	sweets.Post("/:id/restock", auth.RequireAdmin(), cfg.Sweets.Restock)
}
