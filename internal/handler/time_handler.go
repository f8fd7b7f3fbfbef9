package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

type TimeHandler struct {
	clock clockwork.Clock
}

func NewTimeHandler(clock clockwork.Clock) *TimeHandler {
	return &TimeHandler{clock: clock}
}

// ServerTime is the trusted time source clients measure their skew against.
func (h *TimeHandler) ServerTime(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"now": h.clock.Now().UTC().Format(time.RFC3339Nano),
	})
}
