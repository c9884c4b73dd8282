package serverutils

import (
	"errors"

	"kb-console/pkg/chat"
	"kb-console/pkg/kbclient"
	"kb-console/pkg/registry"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the
// BaseResponse envelope with a matching status code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		return c.Status(code).JSON(ErrorResponse(code, message))
	}
}

// StatusFor maps an error to an HTTP status and client-facing message.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	var validationErr *chat.ValidationError
	var requestValidationErr *RequestValidationError
	var backendErr *kbclient.RequestError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Message
	case errors.As(err, &requestValidationErr):
		return fiber.StatusBadRequest, requestValidationErr.Error()
	case errors.Is(err, chat.ErrBusy):
		return fiber.StatusTooManyRequests, err.Error()
	case errors.Is(err, registry.ErrConfirmationRequired):
		return fiber.StatusConflict, err.Error()
	case errors.As(err, &backendErr):
		return fiber.StatusBadGateway, backendErr.Error()
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
