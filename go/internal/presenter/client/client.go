package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/podium/go/internal/presenter/gateway"
)

const writeWait = 10 * time.Second

// Handler receives the payload of an inbound event.
type Handler func(data json.RawMessage)

// Client is a WebSocket connection to the presenter gateway that keeps an
// Authority mirror up to date.
type Client struct {
	conn      *websocket.Conn
	authority *Authority
	logger    zerolog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	nextID    uint64
	handlers  map[string]map[uint64]Handler
	published map[string]json.RawMessage
}

// Dial connects to the gateway and asks for the current presenter status.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	c := &Client{
		conn:      conn,
		authority: NewAuthority(),
		logger:    log.Logger.With().Str("component", "presenter_client").Logger(),
		handlers:  make(map[string]map[uint64]Handler),
		published: make(map[string]json.RawMessage),
	}
	c.authority.BecamePresenter.Add(c.pushPublished)

	if err := c.Get(gateway.EventPresenter); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Authority returns the client's presenter mirror.
func (c *Client) Authority() *Authority {
	return c.authority
}

// Authenticate sends an authentication attempt. The reply arrives
// asynchronously and is applied to the Authority by Run.
func (c *Client) Authenticate(secret string) error {
	data, err := json.Marshal(secret)
	if err != nil {
		return err
	}
	return c.emit(gateway.EventPresenterAuth, data)
}

// Get requests the current value of name.
func (c *Client) Get(name string) error {
	return c.emit(name+"-get", nil)
}

// Set sends a new value for name regardless of authority. The server drops
// it unless this client is the presenter.
func (c *Client) Set(name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return c.emit(name+"-set", data)
}

// Publish records value as this client's local state for name and sends it
// unless local input is currently suppressed. Recorded values are pushed
// again when this client becomes presenter.
func (c *Client) Publish(name string, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", name, err)
	}

	c.mu.Lock()
	c.published[name] = data
	c.mu.Unlock()

	if c.authority.ShouldSuppressLocalInput() {
		return false, nil
	}
	if err := c.emit(name+"-set", data); err != nil {
		return false, err
	}
	return true, nil
}

// On registers a handler for an inbound event. The returned func removes it.
func (c *Client) On(event string, handler Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
	}
}

// Follow applies incoming values of name while following the presenter and
// fetches the presenter's value each time following starts.
func (c *Client) Follow(name string, apply Handler) func() {
	off := c.On(name, func(data json.RawMessage) {
		if c.authority.IsFollowing() {
			apply(data)
		}
	})
	id := c.authority.StartFollowing.Add(func() {
		if err := c.Get(name); err != nil {
			c.logger.Warn().Err(err).Str("value", name).Msg("failed to request presenter value")
		}
	})

	return func() {
		off()
		c.authority.StartFollowing.Remove(id)
	}
}

// Run reads events until ctx is cancelled or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-stop:
		}
	}()

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		c.dispatch(frame)
	}
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) dispatch(frame []byte) {
	var env gateway.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Debug().Err(err).Msg("ignoring malformed frame")
		return
	}

	switch env.Event {
	case gateway.EventPresenterAuth:
		var granted bool
		if err := json.Unmarshal(env.Data, &granted); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring malformed auth reply")
			return
		}
		c.authority.HandleAuthResponse(granted)
	case gateway.EventPresenter:
		var active bool
		if err := json.Unmarshal(env.Data, &active); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring malformed presenter status")
			return
		}
		c.authority.HandlePresenterStatus(active)
	}

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[env.Event]))
	ids := make([]uint64, 0, len(c.handlers[env.Event]))
	for id := range c.handlers[env.Event] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		handlers = append(handlers, c.handlers[env.Event][id])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(env.Data)
	}
}

// pushPublished re-sends recorded local values after authority is granted.
func (c *Client) pushPublished() {
	c.mu.Lock()
	names := make([]string, 0, len(c.published))
	for name := range c.published {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]json.RawMessage, len(names))
	for i, name := range names {
		values[i] = c.published[name]
	}
	c.mu.Unlock()

	for i, name := range names {
		if err := c.emit(name+"-set", values[i]); err != nil {
			c.logger.Warn().Err(err).Str("value", name).Msg("failed to push value")
		}
	}
}

func (c *Client) emit(event string, data json.RawMessage) error {
	frame, err := gateway.EncodeEvent(event, data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return fmt.Errorf("connection closed: %w", err)
		}
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}
