package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cravlr/internal/domain"
	"cravlr/internal/middleware"
	"cravlr/internal/mocks"
	"cravlr/internal/service/auth"
)

func TestErrorHandler_FiberError(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		return middleware.Forbidden("Cannot view results for others' requests")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var out middleware.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "FORBIDDEN", out.Code)
	assert.NotEmpty(t, out.TraceID)
}

func TestErrorHandler_UnknownErrorIsInternal(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Get("/", func(c *fiber.Ctx) error {
		return errors.New("connection refused")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestBindAndValidate(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Post("/", func(c *fiber.Ctx) error {
		var input domain.DecisionInput
		if err := middleware.BindAndValidate(c, &input); err != nil {
			return err
		}
		return c.JSON(input)
	})

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"action":"accept"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("invalid value", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"action":"maybe"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

		var out middleware.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "VALIDATION_ERROR", out.Code)
		assert.Equal(t, "must be one of: accept ignore", out.Fields["action"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"action":`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	authSvc := new(mocks.AuthService)
	user := &domain.User{ID: uuid.New(), Email: "sam@example.com"}
	authSvc.On("ValidateAccessToken", "good").Return(&auth.Claims{UserID: user.ID}, nil)
	authSvc.On("ValidateAccessToken", "bad").Return(nil, auth.ErrInvalidToken)
	authSvc.On("GetUserByID", mock.Anything, user.ID).Return(user, nil)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Get("/me", middleware.AuthRequired(authSvc), func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCurrentUserID(c).String())
	})

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer token", "Bearer good", "", fiber.StatusOK},
		{"query token", "", "?access_token=good", fiber.StatusOK},
		{"missing", "", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic good", "", fiber.StatusUnauthorized},
		{"invalid token", "Bearer bad", "", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
