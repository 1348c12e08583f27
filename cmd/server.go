package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Abraxas-365/debouncex/pkg/config"
	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/Abraxas-365/debouncex/pkg/kernel"
	"github.com/Abraxas-365/debouncex/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

func main() {
	// 1. Logger and configuration
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	cfg := config.Load()

	logx.Info("Starting debouncex API server...")

	// 2. Dependency container
	container := NewContainer(cfg)
	defer container.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	container.StartBackgroundServices(ctx)

	// 3. HTTP app
	app := newApp(container)

	// 4. Serve until a signal arrives
	startServer(ctx, app, cfg.Server)
}

// newApp builds the fiber app with middleware and routes.
func newApp(container *Container) *fiber.App {
	cfg := container.Config

	app := fiber.New(fiber.Config{
		AppName:               "debouncex",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(cfg.Server.Debug),
		BodyLimit:             1 * 1024 * 1024,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Server.Debug,
	}))

	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(requestContext)

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))

	if cfg.Server.Debug {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${respHeader:X-Request-ID}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	app.Get("/health", healthCheckHandler(container))
	app.Get("/", infoHandler(cfg))

	container.RegisterRoutes(app)

	app.Use(notFoundHandler)
	return app
}

// requestContext copies the request id into the user context so it reaches
// debounced functions and their log lines.
func requestContext(c *fiber.Ctx) error {
	// The header value aliases a fasthttp buffer reused by later requests,
	// and the context can outlive this one.
	id := utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID))
	c.SetUserContext(kernel.WithRequestID(c.UserContext(), id))
	return c.Next()
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	})
}

// errorHandler converts errors to JSON responses. errx errors keep their
// code and status; anything else is reported as internal.
func errorHandler(debug bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)

		if e, ok := err.(*fiber.Error); ok {
			return c.Status(e.Code).JSON(fiber.Map{
				"error":      e.Message,
				"code":       "FIBER_ERROR",
				"status":     e.Code,
				"request_id": requestID,
			})
		}

		e := errx.From(err)
		entry := logx.WithContext(c.UserContext()).WithFields(logx.Fields{
			"path":   c.Path(),
			"method": c.Method(),
			"code":   e.Code,
		})
		if e.HTTPStatus >= fiber.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		response := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"status":     e.HTTPStatus,
			"request_id": requestID,
		}
		if len(e.Details) > 0 {
			response["details"] = e.Details
		}
		if debug && e.Err != nil {
			response["underlying_error"] = e.Err.Error()
		}
		return c.Status(e.HTTPStatus).JSON(response)
	}
}

// startServer listens until ctx is cancelled, then shuts down gracefully.
func startServer(ctx context.Context, app *fiber.App, cfg config.ServerConfig) {
	go func() {
		logx.Info(strings.Repeat("=", 60))
		logx.Infof("Server listening on port %s", cfg.Port)
		logx.Infof("Health check: http://localhost:%s/health", cfg.Port)
		logx.Info(strings.Repeat("=", 60))

		if err := app.Listen(":" + cfg.Port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	logx.Info("Server exited")
}
