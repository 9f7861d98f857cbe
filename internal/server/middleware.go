package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/secureauthx/secureauthx"
	"github.com/secureauthx/secureauthx/middleware"
)

const (
	headerRequestID = echo.HeaderXRequestID
	ctxIdentityKey  = "identity"
	maxRequestIDLen = 64
)

// requestContext assigns a request id and copies it and the client IP into
// the request context, where the engine picks them up.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(headerRequestID)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			c.Response().Header().Set(headerRequestID, id)

			ctx := secureauthx.WithRequestID(req.Context(), id)
			ctx = secureauthx.WithClientIP(ctx, c.RealIP())
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func requestLogger(log hclog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", c.Response().Header().Get(headerRequestID),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Error("request", append(args, "error", v.Error)...)
			case v.Latency > time.Second:
				log.Warn("slow request", args...)
			default:
				log.Debug("request", args...)
			}
			return nil
		},
	})
}

// bearerAuth validates the Authorization header and stores the identity in
// the echo context.
func bearerAuth(auth Authenticator, admin bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return errorJSON(c, http.StatusUnauthorized, "Missing Authorization header")
			}

			check := auth.ValidateAccess
			if admin {
				check = auth.RequireAdmin
			}
			id, err := check(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, secureauthx.ErrAdminRequired) {
					return errorJSON(c, http.StatusForbidden, "Admin only")
				}
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return errorJSON(c, http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(ctxIdentityKey, id)
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) (*secureauthx.IdentityView, bool) {
	id, ok := c.Get(ctxIdentityKey).(*secureauthx.IdentityView)
	return id, ok && id != nil
}
