// Package invites implements the /api/v1/invites endpoints.
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

func PostCreateInviteRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Invites.POST("", postCreateInviteHandler(s))
}

func postCreateInviteHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostCreateInvitePayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		label := s.Config.Consent.DeviceKeyLabel
		deviceKey, err := s.DeviceKeys.Generate(ctx, label)
		if err != nil {
			log.Error().Err(err).Msg("device key unavailable for invite")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Device key unavailable").WithInternal(err)
		}

		payload := invite.NewPayload(body.Handle, swag.StringValue(body.Wallet), deviceKey.PublicKey, s.Clock.Now())
		if err := payload.Sign(ctx, s.DeviceKeys, label); err != nil {
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to sign invite").WithInternal(err)
		}

		qr, err := invite.EncodeQR(payload)
		if err != nil {
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to encode invite").WithInternal(err)
		}

		links := invite.Links{Scheme: s.Config.Chain.DeepLinkScheme}
		return util.ValidateAndReturn(c, http.StatusCreated, &types.InviteResponse{
			QR:       qr,
			DeepLink: links.Invite(payload.Nonce),
			Nonce:    payload.Nonce,
		})
	}
}
