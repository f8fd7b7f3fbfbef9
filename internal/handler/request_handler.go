package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"cravlr/internal/domain"
	"cravlr/internal/middleware"
	"cravlr/internal/service/request"
)

type RequestHandler struct {
	requestService request.Service
}

func NewRequestHandler(requestService request.Service) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var input domain.CreateRequestInput
	if err := middleware.BindAndValidate(c, &input); err != nil {
		return err
	}

	req, err := h.requestService.Create(c.Context(), userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

func (h *RequestHandler) ListActive(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	reqs, err := h.requestService.ListActive(c.Context(), userID)
	if err != nil {
		return err
	}
	if reqs == nil {
		reqs = []domain.Request{}
	}

	return c.Status(fiber.StatusOK).JSON(reqs)
}

func (h *RequestHandler) ListRecommendations(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return middleware.BadRequest("Invalid request ID")
	}

	recs, err := h.requestService.ListRecommendations(c.Context(), userID, requestID)
	if err != nil {
		return serviceError(err)
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	return c.Status(fiber.StatusOK).JSON(recs)
}

func (h *RequestHandler) AddRecommendation(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	requestID, err := uuid.Parse(c.Params("requestId"))
	if err != nil {
		return middleware.BadRequest("Invalid request ID")
	}

	var input domain.CreateRecommendationInput
	if err := middleware.BindAndValidate(c, &input); err != nil {
		return err
	}

	rec, err := h.requestService.AddRecommendation(c.Context(), userID, requestID, input)
	if err != nil {
		return serviceError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(rec)
}
