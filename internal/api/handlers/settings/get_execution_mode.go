// Package settings implements the /api/v1/settings endpoints.
package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func GetExecutionModeRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Settings.GET("/execution-mode", getExecutionModeHandler(s))
}

func getExecutionModeHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		simulated, err := s.ExecMode.SimulatedMode(ctx)
		if err != nil {
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to read execution mode").WithInternal(err)
		}
		return util.ValidateAndReturn(c, http.StatusOK, &types.ExecutionModeResponse{Simulated: simulated})
	}
}
