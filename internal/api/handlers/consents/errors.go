// Package consents implements the /api/v1/consents endpoints.
package consents

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/TimzAjes16/echoID/internal/api/httperrors"
	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/types"
)

// toHTTPError maps state machine rejections to the public error envelope.
// Guard violations carry a specific reason code so clients can distinguish
// "too early" from "not yours" without parsing messages.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, consent.ErrConsentNotFound):
		return httperrors.NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeNotFound, "Consent not found")
	case errors.Is(err, consent.ErrNotParticipant):
		return httperrors.NewHTTPError(http.StatusForbidden, types.PublicHTTPErrorTypeForbidden, "Actor is not a consent participant")
	case errors.Is(err, consent.ErrNotEligible):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeNotEligible, "Time lock has not elapsed")
	case errors.Is(err, consent.ErrSelfApproval):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeConflict, "Requester cannot approve their own unlock")
	case errors.Is(err, consent.ErrConsentWithdrawn):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeConflict, "Consent is withdrawn")
	case errors.Is(err, consent.ErrInvalidTransition):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeConflict, "Invalid state transition")
	default:
		return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "Operation failed").WithInternal(err)
	}
}
