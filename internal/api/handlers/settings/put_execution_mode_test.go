package settings_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dropbox/godropbox/time2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/test"
	"github.com/TimzAjes16/echoID/internal/types"
)

func TestExecutionModeDefaultsToSimulated(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, clock *time2.MockClock) {
		rec := test.PerformRequest(t, s, http.MethodGet, "/api/v1/settings/execution-mode", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body types.ExecutionModeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Simulated)
	})
}

func TestPutExecutionModePersists(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, clock *time2.MockClock) {
		rec := test.PerformRequest(t, s, http.MethodPut, "/api/v1/settings/execution-mode", `{"simulated":false}`)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = test.PerformRequest(t, s, http.MethodGet, "/api/v1/settings/execution-mode", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body types.ExecutionModeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Simulated)
	})
}

func TestPutExecutionModeRequiresExplicitFlag(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, clock *time2.MockClock) {
		rec := test.PerformRequest(t, s, http.MethodPut, "/api/v1/settings/execution-mode", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
