package types

import (
	"github.com/go-openapi/swag"
	"github.com/pkg/errors"
)

// PostCreateInvitePayload is the body of POST /api/v1/invites.
type PostCreateInvitePayload struct {
	Handle string  `json:"handle,omitempty"`
	Wallet *string `json:"wallet"`
}

// Validate requires the inviter's wallet address.
func (p *PostCreateInvitePayload) Validate() error {
	if swag.StringValue(p.Wallet) == "" {
		return errors.New("wallet is required")
	}
	return nil
}

// InviteResponse carries the QR-encoded invite and its deep link.
type InviteResponse struct {
	QR       string `json:"qr"`
	DeepLink string `json:"deepLink"`
	Nonce    string `json:"nonce"`
}

// PostDecodeInvitePayload is the body of POST /api/v1/invites/decode.
type PostDecodeInvitePayload struct {
	QR *string `json:"qr"`
}

// Validate requires the QR payload.
func (p *PostDecodeInvitePayload) Validate() error {
	if swag.StringValue(p.QR) == "" {
		return errors.New("qr is required")
	}
	return nil
}

// DecodedInviteResponse is the decoded invite plus its signature check.
type DecodedInviteResponse struct {
	Handle       string `json:"handle,omitempty"`
	Wallet       string `json:"wallet"`
	DevicePubKey string `json:"devicePubKey"`
	Timestamp    int64  `json:"timestamp"`
	Nonce        string `json:"nonce,omitempty"`
	Verified     bool   `json:"verified"`
}

// ResolveHandleResponse is the body of GET /api/v1/handles/:handle.
type ResolveHandleResponse struct {
	Handle       string `json:"handle"`
	Wallet       string `json:"wallet"`
	DevicePubKey string `json:"devicePubKey"`
	ENSName      string `json:"ensName,omitempty"`
	Verified     bool   `json:"verified"`
}
