package consents

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func GetConsentRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Consents.GET("/:id", getConsentHandler(s))
}

func getConsentHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		found, err := s.Machine.Get(ctx, c.Param("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return util.ValidateAndReturn(c, http.StatusOK, types.NewConsentResponse(found))
	}
}
