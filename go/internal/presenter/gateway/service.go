package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/podium/go/internal/presenter/session"
	"github.com/mcdev12/podium/go/internal/presenter/state"
)

// Service is the presenter gateway: WebSocket sessions, authority and replicated values.
type Service struct {
	registry          *session.Registry
	store             *state.Store
	hub               *Hub
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	publisher         Publisher
	gatherer          prometheus.Gatherer
}

// Config holds configuration for the presenter gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	HubConfig        HubConfig
	AllowedOrigins   []string
	Values           []ValueSpec
}

// ValueSpec declares one replicated value.
type ValueSpec struct {
	Name    string
	Kind    state.Kind
	Initial []byte
}

// DefaultConfig returns default configuration for the presenter gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		HubConfig:        HubConfig{AuthWorkers: 4},
		AllowedOrigins:   []string{"*"},
		Values: []ValueSpec{
			{Name: "route", Kind: state.KindString},
			{Name: "light", Kind: state.KindString, Initial: []byte(`"a"`)},
		},
	}
}

// NewService creates a new presenter gateway service. A nil publisher
// disables mirroring; a nil registry falls back to a private Prometheus registry.
func NewService(config Config, verifier SecretVerifier, publisher Publisher, reg *prometheus.Registry) (*Service, error) {
	if publisher == nil {
		publisher = NoOpPublisher{}
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	registry := session.NewRegistry(componentLogger("registry"))
	store, err := NewValueStore(config.Values, registry)
	if err != nil {
		return nil, err
	}

	connConfig := config.ConnectionConfig
	if len(config.AllowedOrigins) > 0 {
		connConfig.CheckOrigin = OriginChecker(config.AllowedOrigins)
	}

	metrics := NewMetrics(reg)
	hub := NewHub(config.HubConfig, registry, store, verifier, publisher, metrics)
	connectionManager := NewConnectionManager(hub, connConfig)

	return &Service{
		registry:          registry,
		store:             store,
		hub:               hub,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, registry),
		stateHandler:      NewStateHandler(registry, store),
		publisher:         publisher,
		gatherer:          reg,
	}, nil
}

// Start runs the hub until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Strs("values", s.store.Names()).Msg("starting presenter gateway service")

	s.hub.Run(ctx)

	log.Info().Msg("presenter gateway service shutting down")
	return s.Stop()
}

// Stop releases external resources.
func (s *Service) Stop() error {
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	log.Info().Msg("presenter gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket, state and metrics routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	log.Info().Msg("presenter gateway routes registered")
}

// Registry exposes the session registry for read-only inspection.
func (s *Service) Registry() *session.Registry {
	return s.registry
}

// Store exposes the value store for read-only inspection.
func (s *Service) Store() *state.Store {
	return s.store
}

// NewValueStore declares values and the built-in read-only presenter value.
func NewValueStore(values []ValueSpec, registry *session.Registry) (*state.Store, error) {
	store := state.NewStore()
	for _, v := range values {
		if err := store.Declare(v.Name, v.Kind, v.Initial); err != nil {
			return nil, fmt.Errorf("failed to declare value: %w", err)
		}
	}
	// Clients ask "presenter-get" on start-up; the answer comes from the registry.
	if err := store.Register(EventPresenter, state.BoolFunc(registry.PresenterActive)); err != nil {
		return nil, fmt.Errorf("failed to register presenter value: %w", err)
	}
	return store, nil
}

func componentLogger(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
