package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"github.com/fleetlive/tracker/internal/dispatcher"
	"github.com/fleetlive/tracker/internal/model/core"
)

var (
	// ErrNotConnected is returned when an operation needs a live socket.
	ErrNotConnected = errors.New("not connected")
	// ErrReconnectExhausted is delivered to the connection-error subscriber
	// once automatic reconnection gives up.
	ErrReconnectExhausted = errors.New("reconnection attempts exhausted")
	// ErrServer wraps error events sent by the server.
	ErrServer = errors.New("server error")
)

const writeWait = 10 * time.Second

// Config holds the channel endpoint and retry policy.
type Config struct {
	URL               string
	Token             string
	HandshakeTimeout  time.Duration
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ReconnectAttempts int
}

// DefaultConfig returns the standard retry policy with no endpoint set.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  20 * time.Second,
		ReconnectDelay:    time.Second,
		ReconnectDelayMax: 5 * time.Second,
		ReconnectAttempts: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.ReconnectDelayMax < c.ReconnectDelay {
		c.ReconnectDelayMax = max(d.ReconnectDelayMax, c.ReconnectDelay)
	}
	if c.ReconnectAttempts < 0 {
		c.ReconnectAttempts = 0
	}
	return c
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithEventLogger sets the logger used for per-event dispatch tracing.
func WithEventLogger(l dispatcher.Logger) Option {
	return func(m *Manager) {
		m.eventLogger = l
	}
}

// Manager owns the single logical connection to the telemetry channel.
// It reconnects on its own after transport loss and forwards decoded
// events to the registered handlers one at a time.
type Manager struct {
	cfg    Config
	dialer *ws.Dialer
	disp   *dispatcher.Dispatcher

	logger      *slog.Logger
	eventLogger dispatcher.Logger

	mu       sync.Mutex
	h        Handlers
	conn     *ws.Conn
	state    core.ConnectionState
	gen      uint64
	attempts int
	timer    *time.Timer
	id       string

	writeMu sync.Mutex
}

// New creates a disconnected Manager.
func New(cfg Config, opts ...Option) (*Manager, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, errors.New("channel URL is required")
	}

	m := &Manager{
		cfg: cfg,
		dialer: &ws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.eventLogger == nil {
		m.eventLogger = m.logger
	}

	disp, err := dispatcher.New(m.eventLogger)
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	m.disp = disp
	m.registerEvents()

	return m, nil
}

// Connect opens the connection and installs h as the subscriber table.
// It returns nil immediately when already connected or connecting. When the
// first handshake fails the error is returned and automatic reconnection is
// still scheduled.
func (m *Manager) Connect(ctx context.Context, h Handlers) error {
	m.mu.Lock()
	if m.state == core.Connected || m.state == core.Connecting {
		m.mu.Unlock()
		return nil
	}
	m.h = h
	m.gen++
	gen := m.gen
	m.state = core.Connecting
	m.attempts = 0
	m.mu.Unlock()

	conn, err := m.dial(ctx)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return fmt.Errorf("connect aborted: %w", ErrNotConnected)
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("Initial connection failed", "error", err)
		go func() {
			m.fire(dispatcher.Event{Name: EventConnectError, Data: err})
			m.scheduleReconnect(gen)
		}()
		return err
	}
	id := m.attach(conn)
	m.mu.Unlock()

	m.logger.Info("Connected to channel", "connectionId", id)
	go m.readLoop(gen, conn)
	return nil
}

// Disconnect closes the socket, cancels any pending reconnection and clears
// the subscriber table. Subscribers are not notified. Safe to call at any time.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	m.state = core.Disconnected
	m.attempts = 0
	m.id = ""
	m.h = Handlers{}
	m.mu.Unlock()

	if conn == nil {
		return
	}

	m.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
	)
	m.writeMu.Unlock()
	_ = conn.Close()
	m.logger.Info("Disconnected from channel")
}

// Emit sends an event to the server. It is best-effort: when the socket is
// not connected the event is dropped and logged.
func (m *Manager) Emit(event string, payload any) {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == core.Connected
	m.mu.Unlock()

	if !connected || conn == nil {
		m.logger.Warn("Channel not connected, dropping event", "event", event)
		return
	}

	data, err := marshalEnvelope(event, payload)
	if err != nil {
		m.logger.Error("Failed to encode event", "event", event, "error", err)
		return
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		m.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
		return
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		// The read loop notices the broken socket and reconnects.
		m.logger.Warn("WebSocket write error", "event", event, "error", err)
	}
}

// RequestDrivers asks the server for a fresh roster.
func (m *Manager) RequestDrivers() {
	m.Emit(EventRequestDrivers, nil)
}

// RequestDriverHistory asks the server for a device's recent samples.
func (m *Manager) RequestDriverHistory(deviceID string, hours int) {
	if hours <= 0 {
		hours = DefaultHistoryHours
	}
	m.Emit(EventRequestDriverHistory, HistoryRequest{DeviceID: deviceID, Hours: hours})
}

// State returns the current connection state.
func (m *Manager) State() core.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the socket is up.
func (m *Manager) Connected() bool {
	return m.State() == core.Connected
}

// Connecting reports whether a handshake or reconnection is in progress.
func (m *Manager) Connecting() bool {
	return m.State() == core.Connecting
}

// ConnectionID identifies the current socket. Empty when not connected.
func (m *Manager) ConnectionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// ReconnectAttempts returns the number of reconnection attempts since the
// last successful connection.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// endpoint builds the dial URL with the token query param.
func (m *Manager) endpoint() (string, error) {
	u, err := url.Parse(httpToWS(m.cfg.URL))
	if err != nil {
		return "", fmt.Errorf("invalid channel URL: %w", err)
	}
	if m.cfg.Token != "" {
		q := u.Query()
		q.Set("token", m.cfg.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// dial performs a single handshake bounded by the handshake timeout.
func (m *Manager) dial(ctx context.Context) (*ws.Conn, error) {
	endpoint, err := m.endpoint()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	defer cancel()

	conn, resp, err := m.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach installs a freshly dialed socket and returns its connection id.
// Caller holds m.mu and must not log until it is released.
func (m *Manager) attach(conn *ws.Conn) string {
	m.conn = conn
	m.state = core.Connected
	m.attempts = 0
	m.id = uuid.NewString()
	return m.id
}

// readLoop announces the connection, then routes inbound frames until the
// socket fails.
func (m *Manager) readLoop(gen uint64, conn *ws.Conn) {
	m.fire(dispatcher.Event{Name: EventConnect})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			m.lost(gen, conn, err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
			m.logger.Warn("Dropping malformed frame", "raw", truncate(message, 256))
			continue
		}

		m.fire(dispatcher.Event{Name: env.Type, Payload: env.Payload})
	}
}

// lost handles transport loss on the socket of generation gen.
func (m *Manager) lost(gen uint64, conn *ws.Conn, err error) {
	m.mu.Lock()
	if gen != m.gen || m.conn != conn {
		m.mu.Unlock()
		return
	}
	_ = conn.Close()
	m.conn = nil
	m.id = ""
	m.state = core.Connecting
	m.mu.Unlock()

	reason := "transport error"
	var ce *ws.CloseError
	if errors.As(err, &ce) {
		reason = "transport close"
		if ce.Code == ws.CloseNormalClosure || ce.Code == ws.CloseGoingAway {
			reason = "server disconnect"
		}
	}
	m.logger.Warn("Channel connection lost", "reason", reason, "error", err)

	m.fire(dispatcher.Event{Name: EventDisconnect, Data: reason})
	m.scheduleReconnect(gen)
}

// delay returns the wait before the given 1-based reconnection attempt.
func (m *Manager) delay(attempt int) time.Duration {
	d := m.cfg.ReconnectDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= m.cfg.ReconnectDelayMax {
			return m.cfg.ReconnectDelayMax
		}
	}
	return min(d, m.cfg.ReconnectDelayMax)
}

// scheduleReconnect arms the timer for the next attempt, or gives up once
// the attempt budget is spent.
func (m *Manager) scheduleReconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.cfg.ReconnectAttempts {
		m.state = core.Error
		m.timer = nil
		m.mu.Unlock()
		m.logger.Error("Channel reconnect failed after max attempts", "maxAttempts", m.cfg.ReconnectAttempts)
		m.fire(dispatcher.Event{Name: EventConnectError, Data: ErrReconnectExhausted})
		return
	}
	next := m.attempts + 1
	backoff := m.delay(next)
	m.timer = time.AfterFunc(backoff, func() { m.reconnect(gen) })
	m.mu.Unlock()

	m.logger.Info("Reconnecting to channel", "attempt", next, "backoff", backoff)
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.attempts++
	attempt := m.attempts
	m.state = core.Connecting
	m.mu.Unlock()

	m.fire(dispatcher.Event{Name: EventReconnectAttempt, Data: attempt})

	conn, err := m.dial(context.Background())

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
		m.fire(dispatcher.Event{Name: EventConnectError, Data: err})
		m.scheduleReconnect(gen)
		return
	}
	id := m.attach(conn)
	m.mu.Unlock()

	m.logger.Info("Channel reconnected", "attempt", attempt, "connectionId", id)
	go m.readLoop(gen, conn)
}

// fire dispatches an event, logging anything the dispatcher rejects.
func (m *Manager) fire(e dispatcher.Event) {
	e.Timestamp = time.Now()
	err := m.disp.Dispatch(e)
	switch {
	case err == nil:
	case errors.Is(err, dispatcher.ErrUnknownEvent):
		m.logger.Debug("Ignoring unknown event", "event", e.Name)
	default:
		m.logger.Warn("Dropping event", "event", e.Name, "error", err)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
