// itirp-gateway is an institutional order-submission gateway: pre-trade risk
// checks, simulated execution with retry and circuit breaking, and a
// complete append-only audit trail over HTTP.
//
// Architecture: Execution Engine -> Risk Engine -> Event Store
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/itirp/gateway/internal/auth"
	"github.com/itirp/gateway/internal/config"
	"github.com/itirp/gateway/internal/eventstore"
	"github.com/itirp/gateway/internal/execution"
	"github.com/itirp/gateway/internal/httpapi"
	"github.com/itirp/gateway/internal/risk"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("version", version).Msg("itirp-gateway starting")

	store := eventstore.New()
	riskEngine := risk.New(cfg.RiskLimits, store)

	execEngine := execution.New(riskEngine, store, execution.Config{
		MaxRetryAttempts:        cfg.MaxRetryAttempts,
		CircuitBreakerThreshold: cfg.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   cfg.CircuitBreakerTimeout,
		WorkerCount:             cfg.WorkerCount,
		JobQueueSize:            4096,
		SimulatedLatency:        cfg.SimulatedLatency,
		SuccessProbability:      cfg.SuccessProbability,
		PriceJitterBand:         cfg.PriceJitterBand,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	execEngine.Start(ctx)

	users, err := auth.NewDirectory()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed user directory")
	}
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	server := httpapi.NewServer(log.Logger, users, tokens, riskEngine, execEngine, store)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	cancel()
	execEngine.Stop()

	log.Info().Msg("goodbye")
}
