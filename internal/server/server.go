// Package server exposes the secureauthx engine over HTTP with echo.
//
// Routes:
//
//	POST /api/auth/register   {email, password}  -> token pair
//	POST /api/auth/login      {email, password}  -> token pair
//	POST /api/auth/refresh    {refresh_token}    -> token pair
//	POST /api/auth/logout     {refresh_token}    -> {"ok": true}
//	GET  /api/users/me        bearer             -> identity
//	GET  /api/admin/dashboard bearer (admin)     -> counters
//	GET  /health
//	GET  /metrics             when a metrics handler is configured
package server

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/secureauthx/secureauthx"
)

// Authenticator is the part of *secureauthx.Engine the handlers call.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*secureauthx.TokenPair, error)
	Login(ctx context.Context, email, password string) (*secureauthx.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*secureauthx.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccess(ctx context.Context, token string) (*secureauthx.IdentityView, error)
	RequireAdmin(ctx context.Context, token string) (*secureauthx.IdentityView, error)
}

// SnapshotSource feeds the admin dashboard.
type SnapshotSource interface {
	MetricsSnapshot() secureauthx.MetricsSnapshot
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	AppName string
	Logger  hclog.Logger
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// Snapshots feeds GET /api/admin/dashboard; nil leaves the counters out.
	Snapshots SnapshotSource
	// Checks run on GET /health; any failure turns the answer into a 503.
	Checks map[string]HealthCheck
}

type Server struct {
	auth Authenticator
	opts Options
	log  hclog.Logger
}

// New builds the echo instance with every route registered.
func New(auth Authenticator, opts Options) *echo.Echo {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.AppName == "" {
		opts.AppName = "SecureAuthX"
	}
	s := &Server{auth: auth, opts: opts, log: opts.Logger.Named("http")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleHTTPError

	e.Use(echomw.Recover())
	e.Use(requestContext())
	e.Use(requestLogger(s.log))

	e.GET("/health", s.health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", s.register)
	authGroup.POST("/login", s.login)
	authGroup.POST("/refresh", s.refresh)
	authGroup.POST("/logout", s.logout)

	users := e.Group("/api/users", bearerAuth(auth, false))
	users.GET("/me", s.me)

	admin := e.Group("/api/admin", bearerAuth(auth, true))
	admin.GET("/dashboard", s.dashboard)

	return e
}
