package serverutils

import (
	"errors"

	"spapperi-configurator/internal/dto"
	"spapperi-configurator/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs the struct's validate tags.
func ValidateRequest(req interface{}) error {
	return validate.Struct(req)
}

// ErrorHandlerMiddleware turns handler errors into the relay's {"error": "..."} shape.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		status, message := resolveError(err)
		details := map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": status,
			"error":  err.Error(),
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("Server", "Request failed", details)
		} else {
			log.Warn("Server", "Request rejected", details)
		}
		return ctx.Status(status).JSON(dto.ErrorResponse{Error: message})
	}
}

func resolveError(err error) (int, string) {
	var relayErr *dto.RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Status, relayErr.Message
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fiber.StatusBadRequest, dto.MsgInvalidRequestPayload
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	return fiber.StatusInternalServerError, dto.MsgInternalProxyError
}
