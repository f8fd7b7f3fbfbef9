package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cravlr/internal/middleware"
	"cravlr/internal/service/notification"
	"cravlr/internal/service/presenter"
	"cravlr/internal/service/request"
)

var serviceErrors = []struct {
	target error
	status int
}{
	{request.ErrRequestNotFound, fiber.StatusNotFound},
	{notification.ErrRequestNotFound, fiber.StatusNotFound},
	{presenter.ErrNothingShowing, fiber.StatusNotFound},
	{notification.ErrForbidden, fiber.StatusForbidden},
	{request.ErrNotRequester, fiber.StatusForbidden},
	{notification.ErrRequestInactive, fiber.StatusBadRequest},
	{notification.ErrRequestExpired, fiber.StatusBadRequest},
	{notification.ErrInvalidAction, fiber.StatusBadRequest},
	{request.ErrOwnRequest, fiber.StatusBadRequest},
	{request.ErrRequestClosed, fiber.StatusBadRequest},
}

// serviceError maps service sentinels onto HTTP errors. Anything else is left for the 500 path.
func serviceError(err error) error {
	for _, se := range serviceErrors {
		if errors.Is(err, se.target) {
			return middleware.NewError(se.status, se.target.Error())
		}
	}
	return err
}
