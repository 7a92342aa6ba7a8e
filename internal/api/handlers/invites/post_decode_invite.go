package invites

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/invite"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func PostDecodeInviteRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Invites.POST("/decode", postDecodeInviteHandler(s))
}

func postDecodeInviteHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body types.PostDecodeInvitePayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		payload, err := invite.DecodeQR(swag.StringValue(body.QR))
		if err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidPayload, err.Error())
		}

		// A bad signature is reported, not rejected: the caller decides
		// whether to trust an unverified invite.
		verified, err := payload.Verify()
		if err != nil {
			verified = false
		}

		return util.ValidateAndReturn(c, http.StatusOK, &types.DecodedInviteResponse{
			Handle:       payload.Handle,
			Wallet:       payload.Wallet,
			DevicePubKey: payload.DevicePubKey,
			Timestamp:    payload.Timestamp,
			Nonce:        payload.Nonce,
			Verified:     verified,
		})
	}
}
