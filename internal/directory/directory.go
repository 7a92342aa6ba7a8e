// Package directory resolves human-readable handles to wallet addresses and
// device public keys via the handle directory service.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidHandleFormat rejects handles that violate the normalization
// rules. Never retried; the caller must fix the input.
var ErrInvalidHandleFormat = errors.New("invalid handle format")

// Handles are lowercase alphanumeric segments joined by single dots.
var handlePattern = regexp.MustCompile(`^[a-z0-9]+(\.[a-z0-9]+)*$`)

const (
	handleMinLen = 3
	handleMaxLen = 30
)

// NormalizeHandle strips a leading @, lowercases, and validates the result:
// 3-30 characters, alphanumeric segments joined by single dots.
func NormalizeHandle(raw string) (string, error) {
	handle := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if len(handle) < handleMinLen || len(handle) > handleMaxLen {
		return "", errors.Wrapf(ErrInvalidHandleFormat, "%q must be %d-%d characters", handle, handleMinLen, handleMaxLen)
	}
	if !handlePattern.MatchString(handle) {
		return "", errors.Wrapf(ErrInvalidHandleFormat, "%q", handle)
	}
	return handle, nil
}

// Resolution is the directory's answer for a handle.
type Resolution struct {
	Wallet       string `json:"wallet"`
	DevicePubKey string `json:"devicePubKey"`
	ENSName      string `json:"ensName,omitempty"`
	Verified     bool   `json:"verified"`
}

// Client talks to the handle directory.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a directory client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// ResolveHandle normalizes raw and looks it up.
func (c *Client) ResolveHandle(ctx context.Context, raw string) (*Resolution, error) {
	handle, err := NormalizeHandle(raw)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/handles/%s", c.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build resolve request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "handle lookup failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Errorf("handle %q not registered", handle)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("handle lookup failed with status %d", resp.StatusCode)
	}

	var res Resolution
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "failed to decode resolution")
	}
	return &res, nil
}

type registerRequest struct {
	Handle       string `json:"handle"`
	Wallet       string `json:"wallet"`
	DevicePubKey string `json:"devicePubKey"`
	Signature    string `json:"signature"`
}

// RegisterHandle claims a handle for a wallet. The signature binds the
// claim to the device key so the directory can verify ownership.
func (c *Client) RegisterHandle(ctx context.Context, raw, wallet, devicePubKey, signature string) error {
	handle, err := NormalizeHandle(raw)
	if err != nil {
		return err
	}

	body, err := json.Marshal(registerRequest{
		Handle:       handle,
		Wallet:       wallet,
		DevicePubKey: devicePubKey,
		Signature:    signature,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal registration")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/handles", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build register request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "handle registration failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return errors.Errorf("handle %q already taken", handle)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.Errorf("handle registration failed with status %d", resp.StatusCode)
	}
	return nil
}
