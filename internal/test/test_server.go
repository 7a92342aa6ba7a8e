// Package test provides helpers for handler-level tests.
package test

import (
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropbox/godropbox/time2"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/handlers"
	"github.com/TimzAjes16/echoID/internal/chain"
	"github.com/TimzAjes16/echoID/internal/coercion"
	"github.com/TimzAjes16/echoID/internal/config"
	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/directory"
	"github.com/TimzAjes16/echoID/internal/execmode"
	"github.com/TimzAjes16/echoID/internal/handshake"
	"github.com/TimzAjes16/echoID/internal/identity"
	"github.com/TimzAjes16/echoID/internal/storage"
)

// WithTestServer runs closure against a fully wired server backed by a
// temp-dir file store, an unavailable live transport (so every mint is
// simulated) and a mock clock starting at a fixed instant.
func WithTestServer(t *testing.T, closure func(s *api.Server, clock *time2.MockClock)) {
	t.Helper()

	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Storage.BasePath = t.TempDir()
	cfg.Consent.SimulatedConfirmDelay = 0

	fileStore, err := storage.NewFileStore(cfg.Storage.BasePath, "test-secret")
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	clock := time2.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	deviceKeys := identity.NewSoftwareDeviceKeyManager(fileStore)
	execRouter := execmode.NewRouter(fileStore, chain.NewUnavailableTransport("test"), 0)
	machine := consent.NewStateMachine(fileStore, execRouter, clock)
	estimator := coercion.NewEstimator(cfg.Coercion)

	s := api.NewServer(cfg)
	s.Clock = clock
	s.Machine = machine
	s.ExecMode = execRouter
	s.Wallet = identity.NewWalletService()
	s.DeviceKeys = deviceKeys
	s.Directory = directory.NewClient(cfg.Chain.DirectoryBaseURL, cfg.Chain.CallTimeout)
	s.NewOrchestrator = func(src handshake.CaptureSources) *handshake.Orchestrator {
		return handshake.New(handshake.Config{
			Audio:          src.Audio,
			Face:           src.Face,
			Geo:            src.Geo,
			Features:       src.Features,
			Keys:           deviceKeys,
			Estimator:      estimator,
			Router:         execRouter,
			Machine:        machine,
			Clock:          clock,
			LockDuration:   cfg.Consent.LockDuration,
			DeviceKeyLabel: cfg.Consent.DeviceKeyLabel,
			ChainParams: handshake.ChainParams{
				ChainID:  big.NewInt(cfg.Chain.ChainID),
				FeeWei:   big.NewInt(1),
				Treasury: cfg.Chain.Treasury,
			},
		})
	}

	api.InitRouter(s)
	handlers.AttachAllRoutes(s)

	closure(s, clock)
}

// PerformRequest sends a JSON request through the echo instance and returns
// the recorder.
func PerformRequest(t *testing.T, s *api.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, echoMIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const (
	echoHeaderContentType   = "Content-Type"
	echoMIMEApplicationJSON = "application/json"
)
