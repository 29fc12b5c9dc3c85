package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-analyzer/internal/api/presenter"
	"github.com/fmuoria/resume-analyzer/internal/logger"
)

const (
	serviceName = "Resume Analyzer"

	// DefaultBodyLimit caps request bodies, uploads included
	DefaultBodyLimit = 50 << 20
)

// Options tune the HTTP server
type Options struct {
	BodyLimit    int
	AllowOrigins string
	Version      string
}

// NewApp creates the Fiber app with middleware and routes registered
func NewApp(h *Handler, opts Options, log *zap.Logger) *fiber.App {
	log = logger.OrNop(log)

	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	if opts.AllowOrigins == "" {
		opts.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: opts.AllowOrigins}))
	app.Use(requestLogger(log))

	Register(app, h, opts.Version)
	return app
}

// errorHandler renders unhandled errors, fiber's own included, as ErrorResponse
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", zap.String("path", utils.CopyString(c.Path())), zap.Error(err))
		}
		return presenter.Error(c, code, err.Error())
	}
}

// requestLogger logs every request once it has been answered
func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		// Ctx strings point into buffers fasthttp reuses once the request ends.
		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", utils.CopyString(c.Method())),
			zap.String("path", utils.CopyString(c.Path())),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", utils.CopyString(c.IP())),
		}
		if status >= fiber.StatusInternalServerError {
			log.Warn("http request", fields...)
		} else {
			log.Info("http request", fields...)
		}
		return nil
	}
}

// serviceInfo describes the service and its main endpoints
func serviceInfo(version string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return presenter.JSON(c, http.StatusOK, fiber.Map{
			"service": serviceName,
			"version": version,
			"endpoints": fiber.Map{
				"POST /api/resume/configure":         "Configure the LLM provider",
				"POST /api/resume/session":           "Create an analysis session",
				"POST /api/resume/upload/:id":        "Upload CV files",
				"POST /api/resume/analyze/:id":       "Score candidates against a job requirement",
				"GET /api/resume/top-candidates/:id": "Get the ranked shortlist",
				"GET /api/resume/export/:id":         "Download the report as xlsx",
				"POST /api/resume/gmail/:id":         "Import CVs from Gmail",
				"GET /health":                        "Health check",
			},
		})
	}
}
