package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()
var Version = "1.0.0"

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type SystemHandler struct {
	store Pinger
	redis Pinger
}

// NewSystemHandler takes the store and, when sessions live in Redis, a Redis
// pinger. A nil redis is reported as disabled.
func NewSystemHandler(store, redis Pinger) *SystemHandler {
	return &SystemHandler{store: store, redis: redis}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	statusCode := fiber.StatusOK

	dbStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		dbStatus = "unreachable: " + err.Error()
		statusCode = fiber.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "unreachable: " + err.Error()
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	overall := "ok"
	if statusCode != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  overall,
		"service": "chatforge",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"uptime":  time.Since(startTime).String(),
		"db":      dbStatus,
		"redis":   redisStatus,
	})
}
