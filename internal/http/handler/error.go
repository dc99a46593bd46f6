package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/derxankvs/dataai-api/internal/http/middleware"
)

// failurePayload is the public error envelope. The API has always reported
// failures as {success:false, message}; request_id is added for correlation
// with the request logs.
type failurePayload struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeFailure writes the standardized failure envelope without leaking
// internal error details.
func writeFailure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(failurePayload{
		Success:   false,
		Message:   message,
		RequestID: requestIDFromCtx(c),
	})
}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses for errors that escape the route handlers.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeFailure(c, status, "requisição inválida")
		case fiber.StatusNotFound:
			return writeFailure(c, status, "recurso não encontrado")
		case fiber.StatusMethodNotAllowed:
			return writeFailure(c, status, "método não permitido")
		default:
			return writeFailure(c, status, "erro interno do servidor")
		}
	}
}
