package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher mirrors accepted changes to observers outside the WebSocket session set.
type Publisher interface {
	PublishValue(name string, value json.RawMessage) error
	PublishPresenter(active bool) error
	Close() error
}

// NoOpPublisher drops everything.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishValue(string, json.RawMessage) error { return nil }
func (NoOpPublisher) PublishPresenter(bool) error                { return nil }
func (NoOpPublisher) Close() error                               { return nil }

// NATSConfig holds configuration for the NATS publisher.
type NATSConfig struct {
	URL           string
	Subject       string // prefix, e.g. "presenter.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS publisher configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "presenter.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// NATSPublisher publishes to <subject>.value.<name> and <subject>.presenter.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

type publishedEvent struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewNATSPublisher connects to NATS.
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("presenter-gateway"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSPublisherFromConn(nc, config.Subject), nil
}

// NewNATSPublisherFromConn wraps an existing connection.
func NewNATSPublisherFromConn(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// PublishValue publishes an accepted set to <subject>.value.<name>.
func (p *NATSPublisher) PublishValue(name string, value json.RawMessage) error {
	return p.publish(p.valueSubject(name), name, value)
}

// PublishPresenter publishes an authority change to <subject>.presenter.
func (p *NATSPublisher) PublishPresenter(active bool) error {
	return p.publish(p.presenterSubject(), EventPresenter, boolData(active))
}

func (p *NATSPublisher) valueSubject(name string) string {
	return p.subject + ".value." + name
}

func (p *NATSPublisher) presenterSubject() string {
	return p.subject + "." + EventPresenter
}

func (p *NATSPublisher) publish(subject, event string, data json.RawMessage) error {
	b, err := json.Marshal(publishedEvent{Event: event, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if err := p.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
