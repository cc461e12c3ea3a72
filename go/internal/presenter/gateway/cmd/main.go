package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/podium/go/internal/presenter/config"
	"github.com/mcdev12/podium/go/internal/presenter/credentials"
	"github.com/mcdev12/podium/go/internal/presenter/gateway"
	"github.com/mcdev12/podium/go/internal/presenter/state"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	verifier, err := credentials.NewVerifier(cfg.Salt, cfg.Hash, cfg.Secret)
	if err != nil {
		// Without a credential nobody can present; followers still sync.
		log.Warn().Err(err).Msg("presenter authentication disabled")
	}
	if cfg.Salt == "" && verifier != nil {
		log.Warn().Msg("PRESENTER_SALT is empty")
	}

	var publisher gateway.Publisher = gateway.NoOpPublisher{}
	if cfg.NATSURL != "" {
		natsCfg := gateway.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.Subject = cfg.NATSSubject
		natsPublisher, err := gateway.NewNATSPublisher(natsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		publisher = natsPublisher
	}

	values, err := valueSpecs(cfg.Values)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid value declarations")
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.AllowedOrigins = cfg.AllowedOrigins
	gatewayConfig.Values = values
	gatewayConfig.HubConfig.Lease = cfg.Lease
	gatewayConfig.HubConfig.AuthWorkers = cfg.AuthWorkers

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var secretVerifier gateway.SecretVerifier
	if verifier != nil {
		secretVerifier = verifier
	}
	gatewayService, err := gateway.NewService(gatewayConfig, secretVerifier, publisher, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	log.Info().
		Str("port", cfg.Port).
		Dur("lease", cfg.Lease).
		Bool("nats", cfg.NATSURL != "").
		Msg("starting presenter gateway")

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	handler := gateway.CORSMiddleware(cfg.AllowedOrigins, mux)

	// No WriteTimeout: it would apply to hijacked WebSocket connections.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stopping the hub closes every WebSocket session.
	cancel()
	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("gateway service did not stop in time")
	}

	log.Info().Msg("presenter gateway shutdown complete")
}

func valueSpecs(decls []config.ValueDecl) ([]gateway.ValueSpec, error) {
	specs := make([]gateway.ValueSpec, 0, len(decls))
	for _, d := range decls {
		kind, err := state.ParseKind(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", d.Name, err)
		}
		initial, err := d.InitialJSON()
		if err != nil {
			return nil, err
		}
		specs = append(specs, gateway.ValueSpec{Name: d.Name, Kind: kind, Initial: initial})
	}
	return specs, nil
}
