// Package handles implements the /api/v1/handles endpoints.
package handles

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/directory"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func GetResolveHandleRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Handles.GET("/:handle", getResolveHandleHandler(s))
}

func getResolveHandleHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		raw := c.Param("handle")
		normalized, err := directory.NormalizeHandle(raw)
		if err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidPayload, err.Error())
		}

		res, err := s.Directory.ResolveHandle(ctx, normalized)
		if err != nil {
			if errors.Is(err, directory.ErrInvalidHandleFormat) {
				return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidPayload, err.Error())
			}
			return httperrors.NewHTTPError(http.StatusBadGateway, types.PublicHTTPErrorTypeGeneric, "Handle lookup failed").WithInternal(err)
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.ResolveHandleResponse{
			Handle:       normalized,
			Wallet:       res.Wallet,
			DevicePubKey: res.DevicePubKey,
			ENSName:      res.ENSName,
			Verified:     res.Verified,
		})
	}
}
