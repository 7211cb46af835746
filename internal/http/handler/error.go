package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"coiapi/internal/http/middleware"
	"coiapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusErrors are the envelopes the global handler writes for errors raised by
// fiber itself (routing, body limit) rather than by a handler.
var statusErrors = map[int]errorEnvelope{
	fiber.StatusBadRequest:            {Code: "BAD_REQUEST", Message: "bad request"},
	fiber.StatusNotFound:              {Code: "NOT_FOUND", Message: "resource not found"},
	fiber.StatusMethodNotAllowed:      {Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
	fiber.StatusRequestTimeout:        {Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	fiber.StatusRequestEntityTooLarge: {Code: "FILE_TOO_LARGE", Message: "request body is too large"},
	fiber.StatusUnsupportedMediaType:  {Code: "UNSUPPORTED_MEDIA_TYPE", Message: "expected multipart/form-data"},
}

var internalError = errorEnvelope{Code: "INTERNAL_ERROR", Message: "internal server error"}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}

// writeError writes the error envelope. Messages are safe for clients; internal
// error text never reaches them.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// serviceError maps document service errors onto HTTP responses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrVendorNotFound):
		return writeError(c, fiber.StatusNotFound, "VENDOR_NOT_FOUND", "vendor not found")
	case errors.Is(err, service.ErrFileMissing):
		return writeError(c, fiber.StatusNotFound, "FILE_MISSING", "document file is missing from storage")
	case errors.Is(err, service.ErrInvalidType):
		return writeError(c, fiber.StatusBadRequest, "INVALID_TYPE", "type must be W9 or COI")
	case errors.Is(err, service.ErrIDRequired), errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, service.ErrTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file is too large")
	default:
		return writeError(c, fiber.StatusInternalServerError, internalError.Code, internalError.Message)
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Statuses without a dedicated envelope keep their code but report INTERNAL_ERROR.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		env, ok := statusErrors[status]
		if !ok {
			env = internalError
		}
		return writeError(c, status, env.Code, env.Message)
	}
}
