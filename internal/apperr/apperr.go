package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error is the stable error payload every failed request resolves to:
// an HTTP status plus a {"error": kind, "detail": detail} body.
type Error struct {
	Status int    `json:"-"`
	Kind   string `json:"error"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Detail
}

func NotFound(detail string) *Error {
	if detail == "" {
		detail = "Object not found"
	}
	return &Error{Status: http.StatusNotFound, Kind: "not_found", Detail: detail}
}

func BadRequest(detail string) *Error {
	return &Error{Status: http.StatusBadRequest, Kind: "bad_request", Detail: detail}
}

func Forbidden(detail string) *Error {
	if detail == "" {
		detail = "Requested resource is forbidden"
	}
	return &Error{Status: http.StatusForbidden, Kind: "forbidden", Detail: detail}
}

func InvalidToken(detail string) *Error {
	if detail == "" {
		detail = "Invalid auth token"
	}
	return &Error{Status: http.StatusUnauthorized, Kind: "invalid_token", Detail: detail}
}

func Conflict(detail string) *Error {
	return &Error{Status: http.StatusConflict, Kind: "conflict", Detail: detail}
}

// Integrity covers storage constraint violations. The detail stays generic
// so schema internals never leak to the caller.
func Integrity() *Error {
	return &Error{Status: http.StatusInternalServerError, Kind: "integrity_error", Detail: "Could not persist object"}
}

func Internal(detail string) *Error {
	if detail == "" {
		detail = "Unknown server error"
	}
	return &Error{Status: http.StatusInternalServerError, Kind: "internal_error", Detail: detail}
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "invalid_token"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusConflict:
		return "conflict"
	}
	if status >= 500 {
		return "internal_error"
	}
	return "bad_request"
}

// HTTPErrorHandler renders every error escaping a handler as the stable
// payload above. Unrecognized errors collapse to internal_error without
// exposing their message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			apiErr = &Error{Status: httpErr.Code, Kind: kindForStatus(httpErr.Code), Detail: http.StatusText(httpErr.Code)}
		} else {
			apiErr = Internal("")
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
