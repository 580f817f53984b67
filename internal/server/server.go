// Package server assembles the fiber application: middlewares, session
// store, services and routes.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/varunock/shareport/internal/config"
	"github.com/varunock/shareport/internal/handlers"
	"github.com/varunock/shareport/internal/middleware"
	"github.com/varunock/shareport/internal/services"
)

// New builds the application around the given config and connection code.
func New(cfg *config.Config, code string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "shareport",
		BodyLimit: int(cfg.MaxUploadSize),
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool { return true },
		AllowCredentials: true,
	}))

	store := session.New(session.Config{
		Expiration:     cfg.SessionLifetime,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	authService := services.NewAuthService(cfg, code)
	fileService := services.NewFileService(cfg)

	authHandler := handlers.NewAuthHandler(store, authService)
	fileHandler := handlers.NewFileHandler(fileService)

	// Only these endpoints are reachable without a session.
	app.Post("/authenticate", authHandler.Authenticate)
	app.Post("/disconnect", authHandler.Disconnect)
	app.Get("/session-status", authHandler.SessionStatus)

	guard := middleware.RequireAuth(store, authService)
	app.Get("/", guard, handlers.Index)
	app.Post("/upload", guard, fileHandler.Upload)
	app.Get("/files", guard, fileHandler.List)
	app.Get("/download/:filename", guard, fileHandler.Download)
	app.Delete("/delete/:filename", guard, fileHandler.Delete)

	return app
}
