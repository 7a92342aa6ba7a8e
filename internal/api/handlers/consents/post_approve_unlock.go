package consents

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func PostApproveUnlockRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Consents.POST("/:id/approve-unlock", postApproveUnlockHandler(s))
}

func postApproveUnlockHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body types.ConsentActionPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		updated, err := s.Machine.ApproveUnlock(ctx, c.Param("id"), swag.StringValue(body.Actor))
		if err != nil {
			return toHTTPError(err)
		}
		return util.ValidateAndReturn(c, http.StatusOK, types.NewConsentResponse(updated))
	}
}
