// Package server starts the consent service daemon.
package server

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dropbox/godropbox/time2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TimzAjes16/echoID/internal/api"
	"github.com/TimzAjes16/echoID/internal/api/handlers"
	"github.com/TimzAjes16/echoID/internal/blob"
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

// New returns the server command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the consent service",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg := config.DefaultServiceConfigFromEnv()
	configureLogger(cfg.Logger)

	fileStore, err := storage.NewFileStore(cfg.Storage.BasePath, cfg.Storage.EncryptionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}

	var consentStore consent.Store = fileStore
	if cfg.Storage.UseRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		consentStore = storage.NewRedisConsentStore(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis consent store")
	}

	feeWei, ok := new(big.Int).SetString(cfg.Chain.FeeWei, 10)
	if !ok {
		log.Fatal().Str("fee_wei", cfg.Chain.FeeWei).Msg("fee is not a valid decimal integer")
	}
	chainID := big.NewInt(cfg.Chain.ChainID)

	// The daemon has no interactive wallet session; live submissions are
	// rejected until one is wired in, and the router falls back per policy.
	transport := chain.NewUnavailableTransport("no wallet session connected")

	deviceKeys := identity.NewDeviceKeyManager(nil, fileStore)
	execRouter := execmode.NewRouter(fileStore, transport, cfg.Consent.SimulatedConfirmDelay)
	machine := consent.NewStateMachine(consentStore, execRouter, time2.DefaultClock)
	estimator := coercion.NewEstimator(cfg.Coercion)
	blobs := blob.NewHTTPStore(cfg.Chain.BlobBaseURL, cfg.Chain.CallTimeout)

	s := api.NewServer(cfg)
	s.Clock = time2.DefaultClock
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
			Blobs:          blobs,
			Clock:          time2.DefaultClock,
			LockDuration:   cfg.Consent.LockDuration,
			DeviceKeyLabel: cfg.Consent.DeviceKeyLabel,
			ChainParams: handshake.ChainParams{
				ChainID:  chainID,
				FeeWei:   feeWei,
				Treasury: cfg.Chain.Treasury,
			},
		})
	}

	api.InitRouter(s)
	handlers.AttachAllRoutes(s)

	go func() {
		if err := s.Start(); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("addr", cfg.Echo.ListenAddress).Msg("consent service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func configureLogger(cfg config.LoggerServer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
