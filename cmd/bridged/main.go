package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nullmatrix0/zaunch/internal/api"
	"github.com/nullmatrix0/zaunch/internal/bridge"
	"github.com/nullmatrix0/zaunch/internal/config"
	"github.com/nullmatrix0/zaunch/internal/endpoint"
	"github.com/nullmatrix0/zaunch/internal/queue"
	solclient "github.com/nullmatrix0/zaunch/internal/solana"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
)

func main() {
	flag.Parse()

	logger := setupLogger()

	logger.Info().
		Str("service", "bridged").
		Str("config", *configPath).
		Msg("Starting bridge daemon")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Monitoring.LogLevel); err == nil && cfg.Monitoring.LogLevel != "" {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", string(cfg.Environment)).
		Int("rpc_endpoints", len(cfg.Chain.RPCEndpoints)).
		Msg("Configuration loaded")

	programs, err := endpoint.NewPrograms(cfg.Programs)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid program addresses")
	}

	client, err := solclient.NewClient(cfg.Chain, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create ledger client")
	}

	signer, err := loadSigner(cfg.Bridge)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load signing key")
	}
	logger.Info().Str("payer", signer.PublicKey().String()).Msg("Signing key loaded")

	resolver := endpoint.NewResolver(client, programs, logger)

	publisher, err := setupPublisher(cfg.Queue, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to message queue")
	}
	defer publisher.Close()

	fees := &bridge.FixedFeeEstimator{
		DefaultLamports: cfg.Bridge.DefaultFee,
		PerDestination:  cfg.Bridge.DestinationFees,
	}

	orch := bridge.NewOrchestrator(
		client,
		signer,
		resolver,
		programs,
		fees,
		publisher,
		solclient.AlreadyProcessed,
		logger,
	)

	server := api.NewServer(cfg, orch, resolver, programs, signer.PublicKey(), client, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	logger.Info().
		Str("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("API server started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	logger.Info().Msg("Bridge daemon stopped")
}

func loadSigner(cfg config.BridgeConfig) (*solclient.Signer, error) {
	if cfg.PrivateKeyEnv != "" {
		if encoded := os.Getenv(cfg.PrivateKeyEnv); encoded != "" {
			return solclient.NewSignerFromString(encoded)
		}
	}
	return solclient.NewSignerFromKeystore(cfg.KeystorePath)
}

func setupPublisher(cfg queue.Config, logger zerolog.Logger) (queue.Publisher, error) {
	if !cfg.Enabled {
		return queue.NopPublisher{}, nil
	}
	return queue.NewNATSPublisher(cfg, logger)
}

func setupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	env := os.Getenv("ZAUNCH_ENVIRONMENT")
	if env == "development" || env == "" {
		// Pretty logging for development
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Caller().
			Logger()
	}

	// Structured JSON logging for production
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()
}
