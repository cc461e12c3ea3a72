package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/podium/go/internal/presenter/session"
	"github.com/mcdev12/podium/go/internal/presenter/state"
)

type hubEventKind int

const (
	evConnect hubEventKind = iota
	evDisconnect
	evMessage
	evAuthResult
)

type hubEvent struct {
	kind     hubEventKind
	conn     *Connection
	envelope Envelope
	ok       bool
}

// HubConfig holds the hub's tunables.
type HubConfig struct {
	// Lease releases authority after the presenter has been silent this long.
	// Zero disables it.
	Lease       time.Duration
	AuthWorkers int
	Clock       clockwork.Clock
	InboundSize int
}

// Hub serializes every registry and store mutation on one goroutine.
// Connections feed it through Connect, Receive and Disconnect.
type Hub struct {
	registry  *session.Registry
	store     *state.Store
	auth      *Authenticator
	publisher Publisher
	metrics   *Metrics
	clock     clockwork.Clock
	lease     time.Duration

	inbound chan hubEvent
	done    chan struct{}
	// ctx ends when Run returns; pending verifications give up with it.
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by the Run goroutine.
	conns       map[string]*Connection
	leaseTimer  clockwork.Timer
	leaseHolder string
}

// NewHub creates a hub. registry and store are owned by the hub from here on.
func NewHub(config HubConfig, registry *session.Registry, store *state.Store, verifier SecretVerifier, publisher Publisher, metrics *Metrics) *Hub {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.InboundSize <= 0 {
		config.InboundSize = 1024
	}
	if publisher == nil {
		publisher = NoOpPublisher{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctx:       ctx,
		cancel:    cancel,
		registry:  registry,
		store:     store,
		auth:      NewAuthenticator(verifier, config.AuthWorkers),
		publisher: publisher,
		metrics:   metrics,
		clock:     config.Clock,
		lease:     config.Lease,
		inbound:   make(chan hubEvent, config.InboundSize),
		done:      make(chan struct{}),
		conns:     make(map[string]*Connection),
	}
}

// Run processes events until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	log.Info().Dur("lease", h.lease).Msg("presenter hub started")
	defer func() {
		h.cancel()
		h.stopLease()
		close(h.done)
		for id, c := range h.conns {
			c.closeSend()
			delete(h.conns, id)
		}
		log.Info().Msg("presenter hub stopped")
	}()

	for {
		var leaseC <-chan time.Time
		if h.leaseTimer != nil {
			leaseC = h.leaseTimer.Chan()
		}

		select {
		case <-ctx.Done():
			return
		case ev := <-h.inbound:
			h.handle(ev)
		case <-leaseC:
			h.expireLease()
		}
	}
}

// Connect admits a connection.
func (h *Hub) Connect(c *Connection) {
	h.post(hubEvent{kind: evConnect, conn: c})
}

// Disconnect removes a connection. Repeated calls are harmless.
func (h *Hub) Disconnect(c *Connection) {
	h.post(hubEvent{kind: evDisconnect, conn: c})
}

// Receive handles one inbound frame on the calling connection's goroutine.
// Authentication is verified here, before the result reaches the hub.
func (h *Hub) Receive(c *Connection, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Debug().Err(err).Str("session_id", c.ID).Msg("dropping malformed frame")
		h.metrics.event(RequestIgnored, "malformed")
		return
	}

	kind, _ := ParseRequest(env.Event)
	if kind != RequestAuth {
		h.post(hubEvent{kind: evMessage, conn: c, envelope: env})
		return
	}

	var secret string
	if err := json.Unmarshal(env.Data, &secret); err != nil {
		secret = ""
	}
	ok := secret != "" && h.auth.Verify(h.ctx, secret)
	h.post(hubEvent{kind: evAuthResult, conn: c, ok: ok})
}

func (h *Hub) post(ev hubEvent) {
	select {
	case h.inbound <- ev:
	case <-h.done:
	}
}

func (h *Hub) handle(ev hubEvent) {
	switch ev.kind {
	case evConnect:
		h.connect(ev.conn)
	case evDisconnect:
		h.disconnect(ev.conn)
	case evMessage:
		h.message(ev.conn, ev.envelope)
	case evAuthResult:
		h.authResult(ev.conn, ev.ok)
	}
}

func (h *Hub) connect(c *Connection) {
	if !h.registry.Add(c.ID, c.ConnectedAt) {
		return
	}
	h.conns[c.ID] = c
	h.metrics.sessions(h.registry.Len())
}

func (h *Hub) disconnect(c *Connection) {
	tr, removed := h.registry.Remove(c.ID)
	if !removed {
		return
	}
	delete(h.conns, c.ID)
	c.closeSend()
	h.metrics.sessions(h.registry.Len())

	if tr.Kind == session.Released {
		h.stopLease()
		h.announcePresenter(false, "")
		h.metrics.transition("released", false)
	}
}

func (h *Hub) message(c *Connection, env Envelope) {
	if _, ok := h.conns[c.ID]; !ok {
		return
	}
	if h.leaseHolder == c.ID {
		h.renewLease()
	}

	kind, name := ParseRequest(env.Event)
	switch kind {
	case RequestGet:
		value, ok := h.store.Get(name)
		if !ok {
			h.metrics.event(kind, "miss")
			return
		}
		h.sendTo(c, name, value)
		h.metrics.event(kind, "ok")

	case RequestSet:
		if !h.registry.IsPresenter(c.ID) {
			log.Debug().Str("session_id", c.ID).Str("value", name).Msg("set from non-presenter dropped")
			h.metrics.event(kind, "unauthorized")
			return
		}
		if err := h.store.Set(name, env.Data); err != nil {
			outcome := "invalid"
			if errors.Is(err, state.ErrUnknownValue) {
				outcome = "unknown"
			}
			log.Debug().Err(err).Str("session_id", c.ID).Msg("set rejected")
			h.metrics.event(kind, outcome)
			return
		}
		value, _ := h.store.Get(name)
		h.broadcast(c.ID, name, value)
		if err := h.publisher.PublishValue(name, value); err != nil {
			log.Warn().Err(err).Str("value", name).Msg("failed to publish value change")
		}
		h.metrics.event(kind, "ok")

	default:
		log.Debug().Str("session_id", c.ID).Str("event", env.Event).Msg("ignoring unhandled event")
		h.metrics.event(kind, "ignored")
	}
}

func (h *Hub) authResult(c *Connection, ok bool) {
	if _, exists := h.conns[c.ID]; !exists {
		return
	}
	h.metrics.auth(ok)

	if !ok {
		log.Info().Str("session_id", c.ID).Msg("presenter authentication failed")
		// Only the requester hears about it; authority is untouched even
		// when the requester is the current holder.
		h.sendTo(c, EventPresenterAuth, boolData(false))
		return
	}

	tr := h.registry.Grant(c.ID)
	switch tr.Kind {
	case session.Granted:
		h.sendTo(c, EventPresenterAuth, boolData(true))
		h.announcePresenter(true, c.ID)
		h.startLease(c.ID)
	case session.Handoff:
		// The displaced presenter hears about the revocation before anyone
		// hears about the new holder.
		if prev, exists := h.conns[tr.Revoked]; exists {
			h.sendTo(prev, EventPresenterAuth, boolData(false))
		}
		h.sendTo(c, EventPresenterAuth, boolData(true))
		h.announcePresenter(true, c.ID)
		h.startLease(c.ID)
	case session.Regranted:
		h.sendTo(c, EventPresenterAuth, boolData(true))
		h.renewLease()
		return
	default:
		return
	}
	h.metrics.transition(tr.Kind.String(), true)
}

func (h *Hub) announcePresenter(active bool, except string) {
	h.broadcast(except, EventPresenter, boolData(active))
	if err := h.publisher.PublishPresenter(active); err != nil {
		log.Warn().Err(err).Bool("active", active).Msg("failed to publish presenter state")
	}
}

// broadcast delivers to every session except origin.
func (h *Hub) broadcast(origin, event string, data json.RawMessage) {
	frame, err := EncodeEvent(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode broadcast")
		return
	}

	for _, id := range h.registry.IDs(origin) {
		if c, ok := h.conns[id]; ok {
			h.deliver(c, frame)
		}
	}

	log.Debug().
		Str("event", event).
		Str("origin", origin).
		Int("sessions", len(h.conns)).
		Msg("event broadcasted")
}

func (h *Hub) sendTo(c *Connection, event string, data json.RawMessage) {
	frame, err := EncodeEvent(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	h.deliver(c, frame)
}

func (h *Hub) deliver(c *Connection, frame []byte) {
	if c.closing {
		return
	}
	select {
	case c.Send <- frame:
		h.metrics.frameSent()
	default:
		// Slow or dead client: drop the socket and let the read side report
		// the disconnect through the normal path.
		log.Warn().Str("session_id", c.ID).Msg("connection send buffer full, closing connection")
		c.closing = true
		h.metrics.slowClient()
		c.closeConn()
	}
}

func (h *Hub) startLease(id string) {
	if h.lease <= 0 {
		return
	}
	h.leaseHolder = id
	h.renewLease()
}

func (h *Hub) renewLease() {
	if h.lease <= 0 || h.leaseHolder == "" {
		return
	}
	if h.leaseTimer != nil {
		h.leaseTimer.Stop()
	}
	h.leaseTimer = h.clock.NewTimer(h.lease)
}

func (h *Hub) stopLease() {
	if h.leaseTimer != nil {
		stopAndDrainTimer(h.leaseTimer)
		h.leaseTimer = nil
	}
	h.leaseHolder = ""
}

func (h *Hub) expireLease() {
	holder := h.leaseHolder
	h.leaseTimer = nil
	h.leaseHolder = ""

	tr := h.registry.Release(holder)
	if tr.Kind != session.Released {
		return
	}
	log.Info().Str("session_id", holder).Dur("lease", h.lease).Msg("presenter lease expired")

	if c, ok := h.conns[holder]; ok {
		h.sendTo(c, EventPresenterAuth, boolData(false))
	}
	h.announcePresenter(false, holder)
	h.metrics.transition("expired", false)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
