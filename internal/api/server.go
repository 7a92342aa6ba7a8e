// Package api hosts the HTTP surface of the consent service.
package api

import (
	"context"
	"net/http"

	"github.com/dropbox/godropbox/time2"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/TimzAjes16/echoID/internal/config"
	"github.com/TimzAjes16/echoID/internal/consent"
	"github.com/TimzAjes16/echoID/internal/directory"
	"github.com/TimzAjes16/echoID/internal/execmode"
	"github.com/TimzAjes16/echoID/internal/handshake"
	"github.com/TimzAjes16/echoID/internal/identity"
)

// Router keeps the echo route groups so handler packages can attach their
// routes without knowing the path layout.
type Router struct {
	Routes []*echo.Route

	Root          *echo.Group
	APIV1Consents *echo.Group
	APIV1Settings *echo.Group
	APIV1Handles  *echo.Group
	APIV1Invites  *echo.Group
}

// Server is the central struct keeping all dependencies. Handlers receive
// it whole and pick the services they need.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config config.Server
	Clock  time2.Clock

	// NewOrchestrator builds a handshake orchestrator around the evidence
	// sources of one request; everything else it wires is shared.
	NewOrchestrator func(handshake.CaptureSources) *handshake.Orchestrator

	Machine      *consent.StateMachine
	ExecMode     *execmode.Router
	Wallet       *identity.WalletService
	DeviceKeys   identity.DeviceKeyManager
	Directory    *directory.Client
}

// NewServer creates a server carrying only its config; the remaining
// dependencies are assigned by the caller before InitRouter.
func NewServer(cfg config.Server) *Server {
	return &Server{Config: cfg}
}

// Ready reports whether the server can serve requests.
func (s *Server) Ready() bool {
	return s.Echo != nil &&
		s.Router != nil &&
		s.NewOrchestrator != nil &&
		s.Machine != nil &&
		s.ExecMode != nil &&
		s.Wallet != nil &&
		s.DeviceKeys != nil
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not fully initialized")
	}
	return s.Echo.Start(s.Config.Echo.ListenAddress)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("shutting down server")

	if s.Echo != nil {
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "failed to shutdown echo server")
		}
	}
	return nil
}
