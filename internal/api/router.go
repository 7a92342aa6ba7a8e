package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/TimzAjes16/echoID/internal/api/httperrors"
)

// InitRouter creates the echo instance, its middleware stack and the route
// groups handler packages attach to.
func InitRouter(s *Server) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httperrors.HTTPErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", c.Request().Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Msg("request")
			return nil
		},
	}))

	s.Echo = e
	s.Router = &Router{
		Root:          e.Group(""),
		APIV1Consents: e.Group("/api/v1/consents"),
		APIV1Settings: e.Group("/api/v1/settings"),
		APIV1Handles:  e.Group("/api/v1/handles"),
		APIV1Invites:  e.Group("/api/v1/invites"),
	}
}
