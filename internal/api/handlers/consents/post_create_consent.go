package consents

import (
	"encoding/base64"
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/handshake"
	"github.com/TimzAjes16/echoID/internal/types"
	"github.com/TimzAjes16/echoID/internal/util"
)

func PostCreateConsentRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Consents.POST("", postCreateConsentHandler(s))
}

func postCreateConsentHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostCreateConsentPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		sources, err := sourcesFromPayload(&body)
		if err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeInvalidPayload, err.Error())
		}

		orch := s.NewOrchestrator(sources)
		created, err := orch.Run(ctx, &handshake.Request{
			ParticipantA:   swag.StringValue(body.ParticipantA),
			ParticipantB:   swag.StringValue(body.ParticipantB),
			TemplateType:   consent.TemplateType(swag.StringValue(body.TemplateType)),
			Purpose:        body.Purpose,
			UnlockMode:     consent.UnlockMode(swag.StringValue(body.UnlockMode)),
			WindowMinutes:  body.WindowMinutes,
			UploadEvidence: body.UploadEvidence,
		})
		if err != nil {
			log.Error().Err(err).Msg("handshake failed")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Failed to create consent").WithInternal(err)
		}

		log.Info().
			Str("id", created.ID).
			Bool("simulated", created.Simulated).
			Msg("consent created via API")
		return util.ValidateAndReturn(c, http.StatusCreated, types.NewConsentResponse(created))
	}
}

// sourcesFromPayload wraps the request's evidence in capture sources.
// Omitted channels become failing sources, which the orchestrator degrades
// to flagged fallbacks.
func sourcesFromPayload(body *types.PostCreateConsentPayload) (handshake.CaptureSources, error) {
	var audio []byte
	if body.AudioBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(body.AudioBase64)
		if err != nil {
			return handshake.CaptureSources{}, err
		}
		audio = decoded
	}

	geo := handshake.StaticLocation{}
	if body.Geo != nil {
		geo = handshake.StaticLocation{Lat: body.Geo.Lat, Lng: body.Geo.Lng, Valid: true}
	}

	features := handshake.StaticFeatures{}
	if body.Features != nil {
		features = handshake.StaticFeatures{Features: *body.Features, Valid: true}
	}

	return handshake.CaptureSources{
		Audio:    handshake.StaticAudio(audio),
		Face:     handshake.StaticEmbedding(body.FaceEmbedding),
		Geo:      geo,
		Features: features,
	}, nil
}
