package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/secureauthx/secureauthx"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func errorJSON(c echo.Context, status int, detail string) error {
	return c.JSON(status, errorResponse{Detail: detail})
}

// respondError maps engine errors onto status codes. Anything unrecognised
// is a 500 and is logged; its text never reaches the client.
func (s *Server) respondError(c echo.Context, err error) error {
	var rl *secureauthx.RateLimitError
	switch {
	case errors.As(err, &rl):
		c.Response().Header().Set("Retry-After", retryAfterSeconds(rl))
		return errorJSON(c, http.StatusTooManyRequests, "Too many requests. Try again later.")
	case errors.Is(err, secureauthx.ErrRateLimited):
		return errorJSON(c, http.StatusTooManyRequests, "Too many requests. Try again later.")
	case errors.Is(err, secureauthx.ErrAlreadyRegistered):
		return errorJSON(c, http.StatusConflict, "Email already registered")
	case errors.Is(err, secureauthx.ErrInvalidCredentials):
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, secureauthx.ErrAccountInactive):
		return errorJSON(c, http.StatusForbidden, "User inactive")
	case errors.Is(err, secureauthx.ErrUnauthorized):
		return errorJSON(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	case errors.Is(err, secureauthx.ErrAdminRequired):
		return errorJSON(c, http.StatusForbidden, "Admin only")
	case errors.Is(err, secureauthx.ErrInvalidRequest):
		return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("request failed", "path", c.Path(), "error", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
}

func retryAfterSeconds(rl *secureauthx.RateLimitError) string {
	secs := int(math.Ceil(rl.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// handleHTTPError renders echo's own errors (unknown route, bad method,
// panics caught by Recover) in the same JSON shape.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("unhandled error", "path", c.Path(), "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = errorJSON(c, status, detail)
}
