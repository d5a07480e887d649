package routes

import (
	"github.com/ahmetk3436/chatforge/internal/config"
	"github.com/ahmetk3436/chatforge/internal/handlers"
	"github.com/ahmetk3436/chatforge/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	wizardHandler *handlers.WizardHandler,
	chatbotHandler *handlers.ChatbotHandler,
	auditHandler *handlers.AuditHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/refresh", authHandler.Refresh)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	api.Get("/auth/me", authHandler.Me)

	// Wizard
	wiz := api.Group("/wizard")
	wiz.Get("/steps", wizardHandler.ListSteps)
	wiz.Post("/sessions", wizardHandler.StartSession)
	wiz.Get("/sessions/:id", wizardHandler.GetSession)
	wiz.Delete("/sessions/:id", wizardHandler.Cancel)
	wiz.Post("/sessions/:id/next", wizardHandler.Next)
	wiz.Post("/sessions/:id/back", wizardHandler.Back)
	wiz.Get("/sessions/:id/summary", wizardHandler.Summary)

	// Wizard events (WebSocket)
	wiz.Use("/sessions/:id/events", wizardHandler.UpgradeCheck())
	wiz.Get("/sessions/:id/events", wizardHandler.Events())

	// Chatbots
	api.Get("/chatbots", chatbotHandler.ListChatbots)
	api.Post("/chatbots", chatbotHandler.CreateChatbot)
	api.Get("/chatbots/:id", chatbotHandler.GetChatbot)
	api.Delete("/chatbots/:id", chatbotHandler.DeleteChatbot)
	api.Get("/chatbots/:id/summary", chatbotHandler.GetSummary)
	api.Put("/chatbots/:id/steps/:step", chatbotHandler.SaveStep)
	api.Post("/chatbots/:id/finalize", chatbotHandler.Finalize)
	api.Post("/chatbots/:id/pause", chatbotHandler.Pause)
	api.Post("/chatbots/:id/resume", chatbotHandler.Resume)

	// Usage
	api.Get("/usage", chatbotHandler.GetUsage)

	// Audit
	api.Get("/audit", auditHandler.ListAuditLogs)
}
