package api

import (
	"tasfiat-brain/internal/api/handlers"
	"tasfiat-brain/pkg/config"
	"tasfiat-brain/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func SetupRouter(
	healthHandler *handlers.HealthHandler,
	searchHandler *handlers.SearchHandler,
	webhookHandler *handlers.WebhookHandler,
	adminHandler *handlers.AdminHandler,
	serverCfg *config.ServerConfig,
	webhookToken string,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      handlers.ServiceName,
		BodyLimit:    serverCfg.BodyLimit,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.TokenHeader,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", healthHandler.Health)
	app.Get("/health", healthHandler.Health)
	app.Post("/search", searchHandler.Search)

	guard := middleware.SharedToken(webhookToken, appLogger)
	app.Post("/chatwoot/webhook", guard, webhookHandler.Chatwoot)

	admin := app.Group("/admin", guard)
	admin.Post("/knowledge/refresh", adminHandler.RefreshKnowledge)

	return app
}
