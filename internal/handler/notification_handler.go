package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cravlr/internal/domain"
	"cravlr/internal/middleware"
	"cravlr/internal/service/notification"
)

type NotificationHandler struct {
	notifService notification.Service
}

func NewNotificationHandler(notifService notification.Service) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

// Decide records accept or ignore for the caller. Accepting one's own finished request means viewing its results.
func (h *NotificationHandler) Decide(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return middleware.BadRequest("Invalid request ID")
	}

	var input domain.DecisionInput
	if err := middleware.BindAndValidate(c, &input); err != nil {
		return err
	}

	result, err := h.notifService.Decide(c.Context(), userID, requestID, input.Action)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

func (h *NotificationHandler) MarkResultsRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return middleware.BadRequest("Invalid request ID")
	}

	if err := h.notifService.MarkResultsRead(c.Context(), userID, requestID); err != nil {
		return err
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	unreadOnly := c.Query("unread_only") == "true"
	params := getPaginationParams(c)

	result, err := h.notifService.List(c.Context(), userID, unreadOnly, params)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	count, err := h.notifService.GetUnreadCount(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": count,
	})
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 20); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}
