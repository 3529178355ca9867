// Package gateway pushes timer events to overlay clients over websockets.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"overlay-widgets/internal/config"
	"overlay-widgets/internal/events"
)

// ErrUpgradeFailed is returned when the HTTP connection could not be upgraded.
// The upgrader has already written the HTTP error response.
var ErrUpgradeFailed = errors.New("websocket upgrade failed")

// ErrBroadcastFull is returned when the broadcast queue cannot take an event
var ErrBroadcastFull = errors.New("broadcast channel full")

// StateProvider supplies the current state of a timer for the snapshot sent
// when an overlay connects.
type StateProvider interface {
	CurrentState(ctx context.Context, timerID string) (events.TimerPayload, error)
}

// StateProviderFunc adapts a function to StateProvider
type StateProviderFunc func(ctx context.Context, timerID string) (events.TimerPayload, error)

func (f StateProviderFunc) CurrentState(ctx context.Context, timerID string) (events.TimerPayload, error) {
	return f(ctx, timerID)
}

// Config holds websocket connection settings
type Config struct {
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the gateway defaults
func DefaultConfig() Config {
	return NewConfig(config.NewConfig().Gateway, nil)
}

// NewConfig builds the gateway settings from application configuration.
// An empty origin list or "*" accepts any origin; overlays are usually
// embedded in streaming software that sends no Origin header at all.
func NewConfig(cfg config.GatewayConfig, allowedOrigins []string) Config {
	return Config{
		WriteWait:       cfg.WriteWait,
		PongWait:        cfg.PongWait,
		PingPeriod:      cfg.PingPeriod,
		MaxMessageSize:  cfg.MaxMessageSize,
		SendBuffer:      cfg.SendBuffer,
		BroadcastBuffer: 1000,
		CheckOrigin:     originChecker(allowedOrigins),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ConnectionManager tracks overlay connections by timer ID and fans events
// out to them. It implements events.Publisher.
type ConnectionManager struct {
	connections map[string]map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   Config
	provider StateProvider

	broadcastCh chan events.Event
}

// Connection is a single overlay websocket
type Connection struct {
	ID          string
	TimerID     string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager
	ConnectedAt time.Time
}

// NewConnectionManager creates a manager that snapshots state from provider
func NewConnectionManager(cfg Config, provider StateProvider) *ConnectionManager {
	if cfg.BroadcastBuffer <= 0 {
		cfg.BroadcastBuffer = 1000
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	return &ConnectionManager{
		connections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		config:      cfg,
		provider:    provider,
		broadcastCh: make(chan events.Event, cfg.BroadcastBuffer),
	}
}

// Start processes broadcasts until ctx is cancelled, then closes every
// connection.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case event := <-cm.broadcastCh:
			cm.handleBroadcast(event)
		}
	}
}

// Publish queues event for delivery to the timer's overlays
func (cm *ConnectionManager) Publish(ctx context.Context, event events.Event) error {
	select {
	case cm.broadcastCh <- event:
		return nil
	default:
		log.Warn().Str("timer_id", event.TimerID).Str("event_type", string(event.Type)).Msg("broadcast channel full, dropping event")
		return ErrBroadcastFull
	}
}

// ServeTimer upgrades the request into an overlay connection for timerID and
// sends it a snapshot of the timer before any event.
//
// The connection is registered before the state is read, so every event
// published after the read reaches it. Events queued during the read follow
// the snapshot and may repeat state it already shows. A lookup error is
// returned with nothing written to w.
func (cm *ConnectionManager) ServeTimer(w http.ResponseWriter, r *http.Request, timerID string) error {
	connection := &Connection{
		ID:          uuid.NewString(),
		TimerID:     timerID,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)

	data, err := cm.snapshot(r.Context(), timerID)
	if err != nil {
		cm.unregisterConnection(connection)
		return err
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.unregisterConnection(connection)
		log.Error().Err(err).Str("timer_id", timerID).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("%w: %v", ErrUpgradeFailed, err)
	}
	connection.Conn = conn

	_ = conn.SetWriteDeadline(time.Now().Add(cm.config.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Error().Err(err).Str("connection_id", connection.ID).Msg("failed to write snapshot to WebSocket")
		cm.unregisterConnection(connection)
		conn.Close()
		return nil
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("timer_id", timerID).
		Msg("WebSocket connection established")
	return nil
}

// snapshot encodes the current state of timerID as a timer.snapshot event
func (cm *ConnectionManager) snapshot(ctx context.Context, timerID string) ([]byte, error) {
	payload, err := cm.provider.CurrentState(ctx, timerID)
	if err != nil {
		return nil, err
	}
	event, err := events.NewEvent(events.EventTimerSnapshot, timerID, payload.AsOf, payload)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.connections[conn.TimerID] == nil {
		cm.connections[conn.TimerID] = make(map[*Connection]bool)
	}
	cm.connections[conn.TimerID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("timer_id", conn.TimerID).
		Int("total_connections", len(cm.connections[conn.TimerID])).
		Msg("connection registered")
}

// unregisterConnection removes conn and closes its send channel. Safe to call
// more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, ok := cm.connections[conn.TimerID]
	if !ok || !connections[conn] {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.connections, conn.TimerID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("timer_id", conn.TimerID).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) handleBroadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	var delivered int
	var slow []*Connection

	// Sends happen under the read lock so no send channel is closed mid-send
	cm.mu.RLock()
	for conn := range cm.connections[event.TimerID] {
		select {
		case conn.Send <- data:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("timer_id", conn.TimerID).
			Msg("connection send buffer full, closing connection")
		// writePump closes the socket once Send is closed
		cm.unregisterConnection(conn)
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("timer_id", event.TimerID).
		Int("connections", delivered).
		Msg("event broadcasted")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.connections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// ConnectionCount returns the number of overlays connected to timerID
func (cm *ConnectionManager) ConnectionCount(timerID string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections[timerID])
}

// Stats summarises the active connections
type Stats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveTimers     int            `json:"active_timers"`
	TimerConnections map[string]int `json:"timer_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{
		ActiveTimers:     len(cm.connections),
		TimerConnections: make(map[string]int, len(cm.connections)),
	}
	for timerID, connections := range cm.connections {
		stats.TotalConnections += len(connections)
		stats.TimerConnections[timerID] = len(connections)
	}
	return stats
}

// writePump drains Send into the socket and pings the overlay
func (c *Connection) writePump() {
	cfg := c.Manager.config
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline alive on pongs. Overlays only listen, so
// anything they send is logged and ignored.
func (c *Connection) readPump() {
	cfg := c.Manager.config
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		log.Debug().Str("connection_id", c.ID).Int("bytes", len(message)).Msg("ignoring client message")
	}
}
