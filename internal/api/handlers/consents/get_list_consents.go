package consents

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func GetListConsentsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Consents.GET("", getListConsentsHandler(s))
}

func getListConsentsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		consents, err := s.Machine.List(ctx)
		if err != nil {
			return toHTTPError(err)
		}

		response := &types.ConsentListResponse{
			Consents: make([]*types.ConsentResponse, 0, len(consents)),
		}
		for _, entry := range consents {
			response.Consents = append(response.Consents, types.NewConsentResponse(entry))
		}
		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
