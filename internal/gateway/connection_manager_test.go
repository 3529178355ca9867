package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "overlay-widgets/internal/errors"
	"overlay-widgets/internal/events"
)

var snapshotTime = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

type fakeProvider struct {
	payloads map[string]events.TimerPayload
}

func (p *fakeProvider) CurrentState(ctx context.Context, timerID string) (events.TimerPayload, error) {
	payload, ok := p.payloads[timerID]
	if !ok {
		return events.TimerPayload{}, apperrors.NewNotFoundError("timer", timerID)
	}
	return payload, nil
}

func newTestManager(t *testing.T) (*ConnectionManager, *httptest.Server) {
	t.Helper()

	provider := &fakeProvider{payloads: map[string]events.TimerPayload{
		"timer-1": {ID: "timer-1", Name: "Focus", Phase: "working", RemainingMs: 1500000, AsOf: snapshotTime},
		"timer-2": {ID: "timer-2", Name: "Study", Phase: "break", RemainingMs: 300000, AsOf: snapshotTime},
	}}
	cm := NewConnectionManager(DefaultConfig(), provider)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timerID := strings.TrimPrefix(r.URL.Path, "/ws/timers/")
		if err := cm.ServeTimer(w, r, timerID); err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
			}
		}
	}))
	t.Cleanup(server.Close)
	return cm, server
}

func dial(t *testing.T, server *httptest.Server, timerID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/timers/" + timerID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event events.Event
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestConnectionManager_SendsSnapshotOnConnect(t *testing.T) {
	// Arrange
	_, server := newTestManager(t)

	// Act
	conn := dial(t, server, "timer-1")
	event := readEvent(t, conn)

	// Assert
	assert.Equal(t, events.EventTimerSnapshot, event.Type)
	assert.Equal(t, "timer-1", event.TimerID)

	var payload events.TimerPayload
	require.NoError(t, event.Decode(&payload))
	assert.Equal(t, "Focus", payload.Name)
	assert.Equal(t, int64(1500000), payload.RemainingMs)
}

func TestConnectionManager_UnknownTimerIsNotUpgraded(t *testing.T) {
	cm, server := newTestManager(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/timers/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, cm.ConnectionCount("missing"))
}

// racingProvider broadcasts an event for the timer while its state is read,
// as a control landing during the connect would
type racingProvider struct {
	fakeProvider
	manager *ConnectionManager
	event   events.Event
}

func (p *racingProvider) CurrentState(ctx context.Context, timerID string) (events.TimerPayload, error) {
	payload, err := p.fakeProvider.CurrentState(ctx, timerID)
	p.manager.handleBroadcast(p.event)
	return payload, err
}

func TestConnectionManager_EventDuringSnapshotReachesOverlay(t *testing.T) {
	// Arrange
	paused, err := events.NewEvent(events.EventTimerUpdated, "timer-1", snapshotTime.Add(time.Second), nil)
	require.NoError(t, err)
	provider := &racingProvider{
		fakeProvider: fakeProvider{payloads: map[string]events.TimerPayload{
			"timer-1": {ID: "timer-1", Name: "Focus", Phase: "working", RemainingMs: 1500000, AsOf: snapshotTime},
		}},
		event: paused,
	}
	cm := NewConnectionManager(DefaultConfig(), provider)
	provider.manager = cm
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = cm.ServeTimer(w, r, strings.TrimPrefix(r.URL.Path, "/ws/timers/"))
	}))
	t.Cleanup(server.Close)

	// Act
	conn := dial(t, server, "timer-1")

	// Assert
	assert.Equal(t, events.EventTimerSnapshot, readEvent(t, conn).Type)
	got := readEvent(t, conn)
	assert.Equal(t, paused.ID, got.ID)
	assert.Equal(t, events.EventTimerUpdated, got.Type)
}

func TestConnectionManager_PublishRoutesByTimer(t *testing.T) {
	// Arrange
	cm, server := newTestManager(t)
	first := dial(t, server, "timer-1")
	second := dial(t, server, "timer-2")
	readEvent(t, first)
	readEvent(t, second)
	require.Eventually(t, func() bool {
		return cm.ConnectionCount("timer-1") == 1 && cm.ConnectionCount("timer-2") == 1
	}, 5*time.Second, 10*time.Millisecond)

	updated, err := events.NewEvent(events.EventTimerUpdated, "timer-2", snapshotTime, nil)
	require.NoError(t, err)

	// Act
	require.NoError(t, cm.Publish(context.Background(), updated))

	// Assert
	got := readEvent(t, second)
	assert.Equal(t, updated.ID, got.ID)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = first.ReadMessage()
	assert.Error(t, err, "timer-1 overlay should not receive timer-2 events")
}

func TestConnectionManager_UnregistersClosedConnections(t *testing.T) {
	cm, server := newTestManager(t)
	conn := dial(t, server, "timer-1")
	readEvent(t, conn)
	require.Eventually(t, func() bool { return cm.ConnectionCount("timer-1") == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	assert.Eventually(t, func() bool { return cm.ConnectionCount("timer-1") == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_DropsSlowConsumer(t *testing.T) {
	// Arrange
	cm := NewConnectionManager(DefaultConfig(), &fakeProvider{})
	slow := &Connection{ID: "slow", TimerID: "timer-1", Send: make(chan []byte, 1), Manager: cm}
	slow.Send <- []byte("backlog")
	cm.registerConnection(slow)

	event, err := events.NewEvent(events.EventTimerUpdated, "timer-1", snapshotTime, nil)
	require.NoError(t, err)

	// Act
	cm.handleBroadcast(event)

	// Assert
	assert.Equal(t, 0, cm.ConnectionCount("timer-1"))
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestConnectionManager_PublishWhenQueueFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BroadcastBuffer = 1
	cm := NewConnectionManager(cfg, &fakeProvider{})

	require.NoError(t, cm.Publish(context.Background(), events.Event{TimerID: "timer-1"}))
	err := cm.Publish(context.Background(), events.Event{TimerID: "timer-1"})

	assert.ErrorIs(t, err, ErrBroadcastFull)
}

func TestConnectionManager_GetConnectionStats(t *testing.T) {
	cm := NewConnectionManager(DefaultConfig(), &fakeProvider{})
	cm.registerConnection(&Connection{ID: "a", TimerID: "timer-1", Send: make(chan []byte, 1), Manager: cm})
	cm.registerConnection(&Connection{ID: "b", TimerID: "timer-1", Send: make(chan []byte, 1), Manager: cm})
	cm.registerConnection(&Connection{ID: "c", TimerID: "timer-2", Send: make(chan []byte, 1), Manager: cm})

	stats := cm.GetConnectionStats()

	assert.Equal(t, 3, stats.TotalConnections)
	assert.Equal(t, 2, stats.ActiveTimers)
	assert.Equal(t, 2, stats.TimerConnections["timer-1"])
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		origin   string
		expected bool
	}{
		{name: "should allow any origin with wildcard", allowed: []string{"*"}, origin: "https://evil.example", expected: true},
		{name: "should allow any origin when unset", allowed: nil, origin: "https://a.example", expected: true},
		{name: "should allow listed origin", allowed: []string{"https://a.example"}, origin: "https://a.example", expected: true},
		{name: "should reject unlisted origin", allowed: []string{"https://a.example"}, origin: "https://b.example", expected: false},
		{name: "should allow missing origin", allowed: []string{"https://a.example"}, origin: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws/timers/x", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.expected, originChecker(tt.allowed)(r))
		})
	}
}
