package settings

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func PutExecutionModeRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Settings.PUT("/execution-mode", putExecutionModeHandler(s))
}

func putExecutionModeHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body types.PutExecutionModePayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		if err := s.ExecMode.SetSimulatedMode(ctx, swag.BoolValue(body.Simulated)); err != nil {
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to persist execution mode").WithInternal(err)
		}
		return util.ValidateAndReturn(c, http.StatusOK, &types.ExecutionModeResponse{Simulated: swag.BoolValue(body.Simulated)})
	}
}
