package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/config"
	apperrors "overlay-widgets/internal/errors"
	"overlay-widgets/internal/events"
	"overlay-widgets/internal/gateway"
	"overlay-widgets/internal/repository/sqlite"
	"overlay-widgets/internal/services"
)

const unknownID = "7d3c1b9e-2f4a-4c8d-9e6f-1a2b3c4d5e6f"

type testServer struct {
	url   string
	clock *clockwork.FakeClock
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := config.NewConfig()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC))

	var timers services.TimerService
	connections := gateway.NewConnectionManager(gateway.DefaultConfig(), gateway.StateProviderFunc(
		func(ctx context.Context, id string) (events.TimerPayload, error) {
			return timers.CurrentState(ctx, id)
		}))
	timers = services.NewTimerService(repo, clock, connections)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go connections.Start(ctx)

	srv := New(api.NewBusinessAPI(timers, cfg), connections, cfg.Server)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	return &testServer{url: httpServer.URL, clock: clock}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, ts.url+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func (ts *testServer) createTimer(t *testing.T, body string) api.TimerView {
	t.Helper()
	status, data := ts.do(t, http.MethodPost, "/api/timers", body)
	require.Equal(t, http.StatusCreated, status, string(data))

	var view api.TimerView
	require.NoError(t, json.Unmarshal(data, &view))
	return view
}

func decodeView(t *testing.T, data []byte) api.TimerView {
	t.Helper()
	var view api.TimerView
	require.NoError(t, json.Unmarshal(data, &view))
	return view
}

func decodeError(t *testing.T, data []byte) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestServer_Health(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","connections":{"total_connections":0,"active_timers":0,"timer_connections":{}}}`, string(body))
}

func TestServer_CreateAndGetTimer(t *testing.T) {
	// Arrange
	ts := setupTestServer(t)
	created := ts.createTimer(t, `{"name":"Focus","work_ms":60000,"break_ms":30000,"cycle_goal":2}`)

	// Act
	status, data := ts.do(t, http.MethodGet, "/api/timers/"+created.ID, "")

	// Assert
	require.Equal(t, http.StatusOK, status)
	view := decodeView(t, data)
	assert.Equal(t, "Focus", view.Name)
	assert.Equal(t, int64(60000), view.WorkMs)
	assert.Equal(t, int64(30000), view.BreakMs)
	assert.Equal(t, 2, view.CycleGoal)
	assert.Equal(t, "01:00", view.Remaining)
	assert.True(t, view.IsPaused)
}

func TestServer_ControlsAndCatchUp(t *testing.T) {
	ts := setupTestServer(t)
	created := ts.createTimer(t, `{"name":"Focus","work_ms":60000,"break_ms":60000,"cycle_goal":2}`)
	base := "/api/timers/" + created.ID

	status, data := ts.do(t, http.MethodPost, base+"/resume", "")
	require.Equal(t, http.StatusOK, status, string(data))
	assert.False(t, decodeView(t, data).IsPaused)

	// Work ends at 1m and 3m
	ts.clock.Advance(3*time.Minute + 30*time.Second)
	status, data = ts.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, status)
	view := decodeView(t, data)
	assert.Equal(t, "break", view.Phase)
	assert.Equal(t, 2, view.CyclesCompleted)
	assert.True(t, view.GoalReached)
	assert.Equal(t, "00:30", view.Remaining)

	status, data = ts.do(t, http.MethodPost, base+"/skip", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "working", decodeView(t, data).Phase)

	status, data = ts.do(t, http.MethodPost, base+"/adjust", `{"delta_ms":-15000}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "00:45", decodeView(t, data).Remaining)

	status, data = ts.do(t, http.MethodPost, base+"/pause", "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decodeView(t, data).IsPaused)

	status, data = ts.do(t, http.MethodPut, base+"/settings", `{"work_ms":30000}`)
	require.Equal(t, http.StatusOK, status, string(data))
	view = decodeView(t, data)
	assert.Equal(t, int64(30000), view.WorkMs)
	assert.Equal(t, "00:30", view.Remaining)

	status, data = ts.do(t, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, status)
	view = decodeView(t, data)
	assert.Equal(t, 0, view.CyclesCompleted)
	assert.Equal(t, "00:30", view.Remaining)
}

func TestServer_ListAndDelete(t *testing.T) {
	ts := setupTestServer(t)
	first := ts.createTimer(t, `{"name":"First"}`)
	ts.clock.Advance(time.Second)
	ts.createTimer(t, `{"name":"Second"}`)

	status, data := ts.do(t, http.MethodGet, "/api/timers", "")
	require.Equal(t, http.StatusOK, status)
	var views []api.TimerView
	require.NoError(t, json.Unmarshal(data, &views))
	require.Len(t, views, 2)

	status, _ = ts.do(t, http.MethodDelete, "/api/timers/"+first.ID, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = ts.do(t, http.MethodGet, "/api/timers/"+first.ID, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "should return 404 for unknown timer",
			method:         http.MethodGet,
			path:           "/api/timers/" + unknownID,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "should return 400 for malformed id",
			method:         http.MethodPost,
			path:           "/api/timers/nope/pause",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "should return 400 for malformed body",
			method:         http.MethodPost,
			path:           "/api/timers",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "should return 400 for unknown fields",
			method:         http.MethodPost,
			path:           "/api/timers",
			body:           `{"name":"Focus","colour":"red"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "should return 400 for invalid settings",
			method:         http.MethodPost,
			path:           "/api/timers",
			body:           `{"name":"Focus","work_ms":-1}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "should return 400 for work_ms beyond the duration range",
			method:         http.MethodPost,
			path:           "/api/timers",
			body:           `{"name":"Focus","work_ms":288230376153211744,"break_ms":300000}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "should return 400 for negative break_ms beyond the duration range",
			method:         http.MethodPut,
			path:           "/api/timers/" + unknownID + "/settings",
			body:           `{"work_ms":1500000,"break_ms":-9223372036854775807}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "should return 400 for delta_ms beyond the duration range",
			method:         http.MethodPost,
			path:           "/api/timers/" + unknownID + "/adjust",
			body:           `{"delta_ms":9223372036854775807}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INPUT",
		},
		{
			name:           "should return 400 for zero adjustment",
			method:         http.MethodPost,
			path:           "/api/timers/" + unknownID + "/adjust",
			body:           `{"delta_ms":0}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)

			status, data := ts.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, status)
			resp := decodeError(t, data)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestServer_OverflowingDurationCreatesNothing(t *testing.T) {
	ts := setupTestServer(t)

	status, data := ts.do(t, http.MethodPost, "/api/timers", `{"name":"Focus","work_ms":288230376153211744,"break_ms":300000}`)

	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decodeError(t, data).Error, "work_ms")

	status, data = ts.do(t, http.MethodGet, "/api/timers", "")
	require.Equal(t, http.StatusOK, status)
	var views []api.TimerView
	require.NoError(t, json.Unmarshal(data, &views))
	assert.Empty(t, views)
}

func TestDurationFromMs(t *testing.T) {
	d, err := durationFromMs("work_ms", maxDurationMs)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(maxDurationMs)*time.Millisecond, d)

	d, err = durationFromMs("delta_ms", -maxDurationMs)
	require.NoError(t, err)
	assert.Equal(t, -time.Duration(maxDurationMs)*time.Millisecond, d)

	_, err = durationFromMs("work_ms", maxDurationMs+1)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeInvalidInput))

	_, err = durationFromMs("delta_ms", -maxDurationMs-1)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeInvalidInput))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "not found", err: apperrors.NewNotFoundError("timer", "x"), expected: http.StatusNotFound},
		{name: "validation", err: apperrors.NewValidationError("bad", nil), expected: http.StatusBadRequest},
		{name: "invalid input", err: apperrors.NewInvalidInputError("body", nil, "bad"), expected: http.StatusBadRequest},
		{name: "invalid configuration", err: apperrors.NewInvalidConfigurationError("work_duration", 0), expected: http.StatusBadRequest},
		{name: "timeout", err: apperrors.NewTimeoutError("query", time.Second), expected: http.StatusGatewayTimeout},
		{name: "conflict", err: apperrors.NewConflictError("timer", "x"), expected: http.StatusConflict},
		{name: "database", err: apperrors.NewDatabaseError("query", nil), expected: http.StatusInternalServerError},
		{name: "plain error", err: assert.AnError, expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestServer_CORS(t *testing.T) {
	ts := setupTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.url+"/api/timers", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://overlay.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_TimerStream(t *testing.T) {
	// Arrange
	ts := setupTestServer(t)
	created := ts.createTimer(t, `{"name":"Focus"}`)
	url := "ws" + strings.TrimPrefix(ts.url, "http") + "/ws/timers/" + created.ID

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent := func() events.Event {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var event events.Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	}

	snapshot := readEvent()
	require.Equal(t, events.EventTimerSnapshot, snapshot.Type)

	// Act
	status, _ := ts.do(t, http.MethodPost, "/api/timers/"+created.ID+"/resume", "")
	require.Equal(t, http.StatusOK, status)

	// Assert
	updated := readEvent()
	assert.Equal(t, events.EventTimerUpdated, updated.Type)
	var payload events.TimerPayload
	require.NoError(t, updated.Decode(&payload))
	assert.False(t, payload.IsPaused)
}

func TestServer_TimerStream_UnknownTimer(t *testing.T) {
	ts := setupTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.url, "http") + "/ws/timers/" + unknownID

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
