package server

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/gofiber/fiber/v2"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/middleware/bearer"
)

// prodStack replaces stack traces in production error payloads.
const prodStack = "🥞"

// errorResponse is the uniform error body every failed request gets.
type errorResponse struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// NewErrorHandler returns the centralized fiber error handler. Every
// error surfaced by a route or middleware is translated into a JSON
// body with a message and, outside production, the error chain.
func NewErrorHandler(log bandmate.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var richErr *goerrors.Error
		var fiberErr *fiber.Error

		switch {
		case goerrors.As(err, &richErr):
			if richErr.Code > 0 {
				status = richErr.Code
			}
			message = richErr.Message
			if richErr.Category == goerrors.CategoryNotFound {
				status = fiber.StatusNotFound
				message = "Not found"
			}
		case goerrors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		case goerrors.IsNotFound(err):
			status = fiber.StatusNotFound
			message = "Not found"
		default:
			if msg := err.Error(); msg != "" {
				message = msg
			}
		}

		log.Error("request failed",
			"status", status,
			"message", message,
			"path", c.Path(),
			"method", c.Method(),
			"ip", c.IP(),
			"error", err,
		)

		stack := err.Error()
		if production {
			stack = prodStack
		}

		return c.Status(status).JSON(errorResponse{
			Message: message,
			Stack:   stack,
		})
	}
}

// unauthorized wraps middleware token failures so they funnel through
// the central handler as 401s with the original cause attached.
func unauthorized(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryAuth, "Invalid or expired token").
		WithTextCode("INVALID_TOKEN").
		WithCode(goerrors.CodeUnauthorized)
}

// tokenValidator adapts the root TokenService to the bearer middleware
// contract.
type tokenValidator struct {
	service bandmate.TokenService
}

func NewTokenValidator(service bandmate.TokenService) *tokenValidator {
	return &tokenValidator{service: service}
}

func (v *tokenValidator) Validate(tokenString string) (bearer.AuthClaims, error) {
	claims, err := v.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
