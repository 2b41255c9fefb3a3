package http

import (
	"github.com/gofiber/fiber/v2"
)

// NewApp creates the fiber application with global middlewares and routes.
func NewApp(appName string, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
