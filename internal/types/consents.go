// Package types holds the request and response payloads of the HTTP API.
package types

import (
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/pkg/errors"

	"github.com/TimzAjes16/echoID/internal/coercion"
	"github.com/TimzAjes16/echoID/internal/consent"
)

// GeoPayload carries the capture coordinates.
type GeoPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PostCreateConsentPayload is the body of POST /api/v1/consents. The
// evidence fields are optional; a missing channel degrades to the
// documented fallback and the consent is flagged accordingly.
type PostCreateConsentPayload struct {
	ParticipantA   *string `json:"participantA"`
	ParticipantB   *string `json:"participantB"`
	TemplateType   *string `json:"templateType"`
	Purpose        string  `json:"purpose,omitempty"`
	UnlockMode     *string `json:"unlockMode"`
	WindowMinutes  int     `json:"windowMinutes,omitempty"`
	UploadEvidence bool    `json:"uploadEvidence,omitempty"`

	AudioBase64   string             `json:"audioBase64,omitempty"`
	FaceEmbedding []float64          `json:"faceEmbedding,omitempty"`
	Geo           *GeoPayload        `json:"geo,omitempty"`
	Features      *coercion.Features `json:"features,omitempty"`
}

// Validate checks required fields and closed sets before any evidence is
// captured.
func (p *PostCreateConsentPayload) Validate() error {
	if swag.StringValue(p.ParticipantA) == "" {
		return errors.New("participantA is required")
	}
	if swag.StringValue(p.ParticipantB) == "" {
		return errors.New("participantB is required")
	}
	if !consent.ValidTemplateType(consent.TemplateType(swag.StringValue(p.TemplateType))) {
		return errors.Errorf("unknown template type: %s", swag.StringValue(p.TemplateType))
	}
	if !consent.ValidUnlockMode(consent.UnlockMode(swag.StringValue(p.UnlockMode))) {
		return errors.Errorf("unknown unlock mode: %s", swag.StringValue(p.UnlockMode))
	}
	if p.WindowMinutes < 0 {
		return errors.New("windowMinutes must not be negative")
	}
	return nil
}

// ConsentActionPayload is the body of the lifecycle endpoints
// (request-unlock, approve-unlock, withdraw, pause, resume).
type ConsentActionPayload struct {
	Actor *string `json:"actor"`
}

// Validate checks the acting wallet address is present.
func (p *ConsentActionPayload) Validate() error {
	if swag.StringValue(p.Actor) == "" {
		return errors.New("actor is required")
	}
	return nil
}

// HandshakeResponse mirrors the four evidence commitments.
type HandshakeResponse struct {
	VoiceHash  string `json:"voiceHash"`
	FaceHash   string `json:"faceHash"`
	DeviceHash string `json:"deviceHash"`
	GeoHash    string `json:"geoHash"`
}

// StatusAuditResponse is one audit trail entry.
type StatusAuditResponse struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Actor  string          `json:"actor,omitempty"`
	Reason string          `json:"reason,omitempty"`
	TxHash string          `json:"txHash,omitempty"`
	At     strfmt.DateTime `json:"at"`
}

// ConsentResponse is the public view of a consent record. LocalData stays
// device-local and is never serialized here.
type ConsentResponse struct {
	ID               *string `json:"id"`
	ConsentID        uint64  `json:"consentId"`
	Simulated        bool    `json:"simulated"`
	FallbackFromLive bool    `json:"fallbackFromLive,omitempty"`
	MintTxHash       string  `json:"mintTxHash,omitempty"`

	ParticipantA *string `json:"participantA"`
	ParticipantB *string `json:"participantB"`
	TemplateType *string `json:"templateType"`
	Purpose      string  `json:"purpose,omitempty"`

	Handshake HandshakeResponse `json:"handshake"`

	CoercionLevel string `json:"coercionLevel"`
	CoercionScore int    `json:"coercionScore"`

	CreatedAt   strfmt.DateTime `json:"createdAt"`
	LockedUntil strfmt.DateTime `json:"lockedUntil"`

	UnlockMode    *string `json:"unlockMode"`
	WindowMinutes int     `json:"windowMinutes,omitempty"`

	Status            *string  `json:"status"`
	UnlockRequestFrom string   `json:"unlockRequestFrom,omitempty"`
	UnlockApprovedBy  []string `json:"unlockApprovedBy,omitempty"`

	Attachments []string `json:"attachments,omitempty"`

	Audit []StatusAuditResponse `json:"audit,omitempty"`
}

// NewConsentResponse maps the domain entity to its public view.
func NewConsentResponse(c *consent.Consent) *ConsentResponse {
	audit := make([]StatusAuditResponse, 0, len(c.Audit))
	for _, entry := range c.Audit {
		audit = append(audit, StatusAuditResponse{
			From:   string(entry.From),
			To:     string(entry.To),
			Actor:  entry.Actor,
			Reason: entry.Reason,
			TxHash: entry.TxHash,
			At:     strfmt.DateTime(entry.At),
		})
	}

	return &ConsentResponse{
		ID:               swag.String(c.ID),
		ConsentID:        c.ConsentID,
		Simulated:        c.Simulated,
		FallbackFromLive: c.FallbackFromLive,
		MintTxHash:       c.MintTxHash,
		ParticipantA:     swag.String(c.ParticipantA),
		ParticipantB:     swag.String(c.ParticipantB),
		TemplateType:     swag.String(string(c.TemplateType)),
		Purpose:          c.Purpose,
		Handshake: HandshakeResponse{
			VoiceHash:  c.Handshake.VoiceHash,
			FaceHash:   c.Handshake.FaceHash,
			DeviceHash: c.Handshake.DeviceHash,
			GeoHash:    c.Handshake.GeoHash,
		},
		CoercionLevel:     string(c.CoercionLevel),
		CoercionScore:     c.CoercionScore,
		CreatedAt:         strfmt.DateTime(c.CreatedAt),
		LockedUntil:       strfmt.DateTime(c.LockedUntil),
		UnlockMode:        swag.String(string(c.UnlockMode)),
		WindowMinutes:     c.WindowMinutes,
		Status:            swag.String(string(c.Status)),
		UnlockRequestFrom: c.UnlockRequestFrom,
		UnlockApprovedBy:  c.UnlockApprovedBy,
		Attachments:       c.Attachments,
		Audit:             audit,
	}
}

// ConsentListResponse is the body of GET /api/v1/consents.
type ConsentListResponse struct {
	Consents []*ConsentResponse `json:"consents"`
}
