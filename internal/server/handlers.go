package server

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/secureauthx/secureauthx"
	"github.com/secureauthx/secureauthx/metrics/export/internaldefs"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type healthResponse struct {
	Status string            `json:"status"`
	App    string            `json:"app"`
	Checks map[string]string `json:"checks,omitempty"`
}

type dashboardResponse struct {
	Message  string            `json:"message"`
	Identity string            `json:"identity"`
	Metrics  map[string]uint64 `json:"metrics,omitempty"`
}

var binder = &echo.DefaultBinder{}

func malformedBody(c echo.Context) error {
	return errorJSON(c, http.StatusUnprocessableEntity, "Malformed request body")
}

func (s *Server) register(c echo.Context) error {
	var req credentialsRequest
	if err := binder.BindBody(c, &req); err != nil {
		return malformedBody(c)
	}
	pair, err := s.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) login(c echo.Context) error {
	var req credentialsRequest
	if err := binder.BindBody(c, &req); err != nil {
		return malformedBody(c)
	}
	pair, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := binder.BindBody(c, &req); err != nil {
		return malformedBody(c)
	}
	pair, err := s.auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// logout answers ok for unknown, expired and already revoked tokens alike.
func (s *Server) logout(c echo.Context) error {
	var req refreshRequest
	if err := binder.BindBody(c, &req); err != nil {
		return malformedBody(c)
	}
	if err := s.auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) me(c echo.Context) error {
	id, ok := identityFrom(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "Invalid or expired token")
	}
	return c.JSON(http.StatusOK, id)
}

func (s *Server) dashboard(c echo.Context) error {
	id, ok := identityFrom(c)
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "Invalid or expired token")
	}

	resp := dashboardResponse{
		Message:  "Welcome, admin.",
		Identity: id.Email,
	}
	if s.opts.Snapshots != nil {
		resp.Metrics = counterNames(s.opts.Snapshots.MetricsSnapshot())
	}
	return c.JSON(http.StatusOK, resp)
}

func counterNames(snapshot secureauthx.MetricsSnapshot) map[string]uint64 {
	if len(snapshot.Counters) == 0 {
		return nil
	}
	out := make(map[string]uint64, len(internaldefs.CounterDefs))
	for _, def := range internaldefs.CounterDefs {
		out[def.Name] = snapshot.Counters[def.ID]
	}
	return out
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", App: s.opts.AppName}
	status := http.StatusOK

	if len(s.opts.Checks) > 0 {
		names := make([]string, 0, len(s.opts.Checks))
		for name := range s.opts.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := s.opts.Checks[name](c.Request().Context()); err != nil {
				s.log.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	return c.JSON(status, resp)
}
