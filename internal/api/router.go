package api

import "github.com/gofiber/fiber/v2"

// Register wires all HTTP routes onto the given Fiber app
func Register(app *fiber.App, h *Handler, version string) {
	app.Get("/", serviceInfo(version))
	app.Get("/health", h.Health)

	rg := app.Group("/api/resume")

	// Provider configuration
	rg.Post("/configure", h.Configure)
	rg.Get("/llm-status", h.LLMStatus)
	rg.Get("/llm-config", h.LLMConfig)

	rg.Post("/session", h.CreateSession)
	rg.Delete("/session/:id", h.DeleteSession)

	rg.Post("/upload/:id", h.Upload)
	rg.Post("/gmail/:id", h.ImportGmail)
	rg.Get("/candidates/:id", h.Candidates)

	rg.Post("/analyze/:id", h.Analyze)
	rg.Get("/results/:id", h.Results)
	rg.Get("/top-candidates/:id", h.TopCandidates)
	rg.Get("/export/:id", h.Export)
}
