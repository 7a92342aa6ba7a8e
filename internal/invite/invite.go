// Package invite encodes participant-invite payloads for QR transport and
// builds the app's deep links. Payloads can be signed with the device key
// so the receiver can verify the inviter controls the advertised key.
package invite

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/TimzAjes16/echoID/internal/identity"
)

// Payload is the participant-invite exchanged via QR code or deep link.
type Payload struct {
	Handle       string `json:"handle,omitempty"`
	Wallet       string `json:"wallet"`
	DevicePubKey string `json:"devicePubKey"`
	Timestamp    int64  `json:"timestamp"`
	Signature    string `json:"signature,omitempty"`
	Nonce        string `json:"nonce,omitempty"`
}

// NewPayload builds an unsigned invite for a wallet and device key.
func NewPayload(handle, wallet string, devicePubKey []byte, now time.Time) *Payload {
	return &Payload{
		Handle:       handle,
		Wallet:       wallet,
		DevicePubKey: hex.EncodeToString(devicePubKey),
		Timestamp:    now.Unix(),
		Nonce:        uuid.NewString(),
	}
}

// signingDigest is the Keccak digest the device key signs. The signature
// field itself is excluded.
func (p *Payload) signingDigest() []byte {
	preimage := fmt.Sprintf("echoid.invite|%s|%s|%s|%d|%s",
		p.Handle, p.Wallet, p.DevicePubKey, p.Timestamp, p.Nonce)
	return crypto.Keccak256([]byte(preimage))
}

// Sign attaches a device-key signature to the payload.
func (p *Payload) Sign(ctx context.Context, keys identity.DeviceKeyManager, label string) error {
	sig, err := keys.Sign(ctx, p.signingDigest(), label)
	if err != nil {
		return errors.Wrap(err, "failed to sign invite")
	}
	p.Signature = hex.EncodeToString(sig)
	return nil
}

// Verify checks the payload's signature against its own device public key.
// Unsigned payloads verify as false, not as an error.
func (p *Payload) Verify() (bool, error) {
	if p.Signature == "" {
		return false, nil
	}
	pub, err := hex.DecodeString(p.DevicePubKey)
	if err != nil {
		return false, errors.Wrap(err, "malformed device public key")
	}
	sig, err := hex.DecodeString(p.Signature)
	if err != nil {
		return false, errors.Wrap(err, "malformed signature")
	}
	return identity.VerifyDeviceSignature(pub, p.signingDigest(), sig)
}

// EncodeQR serializes the payload for QR transport: JSON, then base64.
func EncodeQR(p *Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal invite")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeQR reverses EncodeQR.
func DecodeQR(encoded string) (*Payload, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "invite is not valid base64")
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "invite is not valid JSON")
	}
	if p.Wallet == "" || p.DevicePubKey == "" {
		return nil, errors.New("invite is missing wallet or device key")
	}
	return &p, nil
}

// Links builds the app's deep links for a configured scheme.
type Links struct {
	Scheme string
}

// User returns the profile link for a handle.
func (l Links) User(handle string) string {
	return fmt.Sprintf("%s://u/%s", l.Scheme, handle)
}

// Invite returns the invite link for a nonce.
func (l Links) Invite(nonce string) string {
	return fmt.Sprintf("%s://invite/%s", l.Scheme, nonce)
}

// Consent returns the link to an existing consent.
func (l Links) Consent(id string) string {
	return fmt.Sprintf("%s://consent/%s", l.Scheme, id)
}

// LinkKind identifies which deep link a received URL is.
type LinkKind string

const (
	LinkKindUser    LinkKind = "u"
	LinkKindInvite  LinkKind = "invite"
	LinkKindConsent LinkKind = "consent"
)

// ParsedLink is a deep link taken apart: its kind and the handle, nonce or
// consent id it carries.
type ParsedLink struct {
	Kind  LinkKind
	Value string
}

// Parse reverses the builders above. Links with a foreign scheme, an
// unknown kind or an empty value are rejected.
func (l Links) Parse(raw string) (*ParsedLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "malformed deep link")
	}
	if u.Scheme != l.Scheme {
		return nil, errors.Errorf("deep link scheme %q is not %q", u.Scheme, l.Scheme)
	}

	kind := LinkKind(u.Host)
	switch kind {
	case LinkKindUser, LinkKindInvite, LinkKindConsent:
	default:
		return nil, errors.Errorf("unknown deep link kind %q", u.Host)
	}

	value := strings.Trim(u.Path, "/")
	if value == "" || strings.Contains(value, "/") {
		return nil, errors.Errorf("deep link %q carries no single value", raw)
	}

	return &ParsedLink{Kind: kind, Value: value}, nil
}
