package invites_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/test"
	"github.com/TimzAjes16/echoID/internal/types"
)

func TestCreateAndDecodeInvite(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, clock *time2.MockClock) {
		rec := test.PerformRequest(t, s, http.MethodPost, "/api/v1/invites", `{"handle": "alex.wave", "wallet": "0xaaaa"}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created types.InviteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.QR)
		assert.True(t, strings.HasPrefix(created.DeepLink, "echoid://invite/"))

		decodeBody, err := json.Marshal(types.PostDecodeInvitePayload{QR: &created.QR})
		require.NoError(t, err)

		rec = test.PerformRequest(t, s, http.MethodPost, "/api/v1/invites/decode", string(decodeBody))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var decoded types.DecodedInviteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
		assert.Equal(t, "alex.wave", decoded.Handle)
		assert.Equal(t, "0xaaaa", decoded.Wallet)
		assert.True(t, decoded.Verified)
		assert.Equal(t, created.Nonce, decoded.Nonce)
	})
}

func TestCreateInviteRequiresWallet(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, clock *time2.MockClock) {
		rec := test.PerformRequest(t, s, http.MethodPost, "/api/v1/invites", `{"handle": "alex.wave"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
