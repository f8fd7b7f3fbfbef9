package handler

import (
	"github.com/gofiber/fiber/v2"

	"cravlr/internal/middleware"
	"cravlr/internal/service/session"
)

type SessionHandler struct {
	hub *session.Hub
}

func NewSessionHandler(hub *session.Hub) *SessionHandler {
	return &SessionHandler{hub: hub}
}

type visibilityInput struct {
	Foreground *bool `json:"foreground" validate:"required"`
}

type dndInput struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *SessionHandler) SetVisibility(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var input visibilityInput
	if err := middleware.BindAndValidate(c, &input); err != nil {
		return err
	}

	s := h.hub.Get(userID)
	if s == nil {
		return fiber.ErrServiceUnavailable
	}
	s.SetForeground(*input.Foreground)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"foreground": *input.Foreground})
}

func (h *SessionHandler) SetDND(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var input dndInput
	if err := middleware.BindAndValidate(c, &input); err != nil {
		return err
	}

	s := h.hub.Get(userID)
	if s == nil {
		return fiber.ErrServiceUnavailable
	}
	s.SetDND(*input.Enabled)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"enabled": *input.Enabled})
}

func (h *SessionHandler) End(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	h.hub.Remove(userID)
	return c.Status(fiber.StatusNoContent).SendString("")
}
