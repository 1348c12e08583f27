package main

import (
	"context"
	"errors"

	"github.com/Abraxas-365/debouncex/pkg/config"
	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

var apiErrors = errx.NewRegistry("API")

var (
	ErrInvalidBody = apiErrors.Register("INVALID_BODY", errx.TypeValidation, 0, "Request body is invalid")
	ErrDisabled    = apiErrors.Register("DISABLED", errx.TypeUnavailable, 0, "Component is not configured")
	ErrTimeout     = apiErrors.Register("AWAIT_TIMEOUT", errx.TypeUnavailable, fiber.StatusGatewayTimeout, "Result was not available in time")
)

type echoRequest struct {
	Value string `json:"value"`
}

// RegisterRoutes mounts the /v1 API.
func (c *Container) RegisterRoutes(app *fiber.App) {
	v1 := app.Group("/v1")

	echo := v1.Group("/echo")
	echo.Post("/", c.handleEcho)
	echo.Post("/flush", c.handleEchoFlush)
	echo.Post("/clear", c.handleEchoClear)

	v1.Get("/keys/:key", c.handleGetKey)
	v1.Get("/records/:id", c.handleGetRecord)

	snapshot := v1.Group("/snapshot")
	snapshot.Put("/", c.handleSaveSnapshot)
	snapshot.Post("/flush", c.handleSnapshotFlush)
}

// handleEcho answers once the debounced echo fires. Concurrent requests
// within the window all receive the value of the last one.
func (c *Container) handleEcho(ctx *fiber.Ctx) error {
	var req echoRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apiErrors.NewWithCause(ErrInvalidBody, err)
	}

	res, err := c.Echo.Call(ctx.UserContext(), req.Value).
		AwaitTimeout(ctx.UserContext(), c.Config.Debounce.AwaitTimeout)
	if err != nil {
		return c.awaitError(err)
	}
	return ctx.JSON(res)
}

// awaitContext bounds waits on debounced results. A cleared batch never
// settles, so a request must not wait for it indefinitely.
func (c *Container) awaitContext(ctx *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.UserContext(), c.Config.Debounce.AwaitTimeout)
}

func (c *Container) awaitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apiErrors.NewWithCause(ErrTimeout, err).
			WithDetail("timeout", c.Config.Debounce.AwaitTimeout.String())
	}
	return err
}

func (c *Container) handleEchoFlush(ctx *fiber.Ctx) error {
	c.Echo.Flush()
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *Container) handleEchoClear(ctx *fiber.Ctx) error {
	pending := c.Echo.Pending()
	c.Echo.Clear()
	return ctx.JSON(fiber.Map{"cleared": pending})
}

func (c *Container) handleGetKey(ctx *fiber.Ctx) error {
	if c.Keys == nil {
		return apiErrors.New(ErrDisabled).WithDetail("component", "redis")
	}
	key := ctx.Params("key")
	awaitCtx, cancel := c.awaitContext(ctx)
	defer cancel()

	value, err := c.Keys.MustGet(awaitCtx, key)
	if err != nil {
		return c.awaitError(err)
	}
	return ctx.JSON(fiber.Map{"key": key, "value": value})
}

func (c *Container) handleGetRecord(ctx *fiber.Ctx) error {
	if c.Records == nil {
		return apiErrors.New(ErrDisabled).WithDetail("component", "database")
	}
	awaitCtx, cancel := c.awaitContext(ctx)
	defer cancel()

	record, err := c.Records.Get(awaitCtx, ctx.Params("id"))
	if err != nil {
		return c.awaitError(err)
	}
	return ctx.JSON(record)
}

// handleSaveSnapshot schedules a snapshot write. With ?wait=true the response
// is sent after the write; otherwise it returns 202 right away.
func (c *Container) handleSaveSnapshot(ctx *fiber.Ctx) error {
	if c.Snapshots == nil {
		return apiErrors.New(ErrDisabled).WithDetail("component", "storage")
	}
	var snap Snapshot
	if err := ctx.BodyParser(&snap); err != nil {
		return apiErrors.NewWithCause(ErrInvalidBody, err)
	}

	future := c.Snapshots.Save(ctx.UserContext(), snap)
	if !ctx.QueryBool("wait", false) {
		return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "scheduled"})
	}

	res, err := future.AwaitTimeout(ctx.UserContext(), c.Config.Debounce.AwaitTimeout)
	if err != nil {
		return c.awaitError(err)
	}
	return ctx.JSON(res)
}

func (c *Container) handleSnapshotFlush(ctx *fiber.Ctx) error {
	if c.Snapshots == nil {
		return apiErrors.New(ErrDisabled).WithDetail("component", "storage")
	}
	c.Snapshots.Flush()
	return ctx.SendStatus(fiber.StatusNoContent)
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "debouncex",
			"version": container.Config.Server.AppVersion,
		}

		if container.DB != nil {
			if err := container.DB.PingContext(c.UserContext()); err != nil {
				health["db"] = "unhealthy"
				health["status"] = "degraded"
			} else {
				health["db"] = "healthy"
			}
		}
		if container.Redis != nil {
			if err := container.Redis.Ping(c.UserContext()).Err(); err != nil {
				health["redis"] = "unhealthy"
				health["status"] = "degraded"
			} else {
				health["redis"] = "healthy"
			}
		}
		health["echo_pending"] = container.Echo.Pending()

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func infoHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "debouncex",
			"version": cfg.Server.AppVersion,
			"debounce": fiber.Map{
				"wait":     cfg.Debounce.Wait.String(),
				"leading":  cfg.Debounce.Leading,
				"trailing": cfg.Debounce.Trailing,
			},
			"endpoints": fiber.Map{
				"echo":     "POST /v1/echo",
				"keys":     "GET /v1/keys/:key",
				"records":  "GET /v1/records/:id",
				"snapshot": "PUT /v1/snapshot",
				"health":   "GET /health",
			},
		})
	}
}
