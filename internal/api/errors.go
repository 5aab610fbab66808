package api

import (
	"errors"
	"net/http"
	"strings"

	"edurag/internal/storage"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler renders every failure as {"error": {"code", "message"}}.
// Internal details are logged, not returned.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, apiErr := toAPIError(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("uri", c.Request().RequestURI),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, map[string]any{"error": apiErr})
	}
}

func toAPIError(err error) (int, apiError) {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, apiError{Code: "ED-API-4004", Message: "Requested resource was not found."}
	case errors.Is(err, storage.ErrInvalidTransition):
		return http.StatusConflict, apiError{Code: "ED-API-4009", Message: "Operation conflicts with the document's current status."}
	case errors.As(err, &he):
		return he.Code, apiError{Code: codeFor(he.Code), Message: messageFor(he)}
	}

	raw := strings.ToLower(err.Error())
	switch {
	case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
		return http.StatusInternalServerError, apiError{
			Code:    "ED-DB-5001",
			Message: "Database schema is not initialized. Run migrations and retry.",
		}
	case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
		return http.StatusServiceUnavailable, apiError{
			Code:    "ED-DB-5002",
			Message: "Database connection is unavailable. Check local services and retry.",
		}
	}
	return http.StatusInternalServerError, apiError{
		Code:    "ED-API-5000",
		Message: "Internal server error. Please retry or check service logs.",
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ED-API-4001"
	case http.StatusNotFound:
		return "ED-API-4004"
	case http.StatusMethodNotAllowed:
		return "ED-API-4005"
	case http.StatusConflict:
		return "ED-API-4009"
	case http.StatusRequestEntityTooLarge:
		return "ED-API-4013"
	case http.StatusUnsupportedMediaType:
		return "ED-API-4015"
	}
	if status >= http.StatusInternalServerError {
		return "ED-API-5000"
	}
	return "ED-API-4000"
}

// messageFor keeps the validation messages handlers raise and replaces
// echo's generic ones with user-facing text.
func messageFor(he *echo.HTTPError) string {
	msg, _ := he.Message.(string)
	switch he.Code {
	case http.StatusNotFound:
		return "Requested resource was not found."
	case http.StatusMethodNotAllowed:
		return "This endpoint does not support the requested method."
	case http.StatusRequestEntityTooLarge:
		return "Uploaded file is too large."
	}
	if msg == "" {
		return "Request failed."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
