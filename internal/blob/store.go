// Package blob is the content-addressed evidence store client. Uploads are
// best-effort: a failed upload never blocks a handshake, the evidence just
// stays device-local.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Store uploads and retrieves opaque evidence blobs by content id.
type Store interface {
	Upload(ctx context.Context, data []byte) (string, error)
	Download(ctx context.Context, contentID string) ([]byte, error)
}

// HTTPStore talks to an IPFS-style pinning gateway.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates a blob client with the given request timeout. A hang
// must surface as a reportable failure, so timeout zero is rejected by
// substituting a sane default.
func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	ContentID string `json:"cid"`
}

// Upload pins data and returns its content id.
func (s *HTTPStore) Upload(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/blobs", bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to build upload request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "blob upload failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.Errorf("blob upload failed with status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "failed to decode upload response")
	}
	if out.ContentID == "" {
		return "", errors.New("blob store returned empty content id")
	}
	return out.ContentID, nil
}

// Download fetches a blob by content id.
func (s *HTTPStore) Download(ctx context.Context, contentID string) ([]byte, error) {
	url := fmt.Sprintf("%s/blobs/%s", s.baseURL, contentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build download request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "blob download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Errorf("blob %s not found", contentID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("blob download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read blob body")
	}
	return data, nil
}
