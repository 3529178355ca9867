package cli

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-widgets/internal/api"
	apperrors "overlay-widgets/internal/errors"
)

func TestWatchCommand_NonTerminalPrintsOnce(t *testing.T) {
	ctx := context.Background()
	app, mock, out := setupTestAppWithMockBusinessAPI()
	created, err := mock.CreateTimer(ctx, "Focus", api.TimerSettingsInput{})
	require.NoError(t, err)

	require.NoError(t, NewWatchCommand(app).Execute(ctx, []string{created.ID}))

	assert.Equal(t, "timer-1  Focus  working 25:00 (paused)  cycles 0\n", out.String())
}

func TestWatchCommand_UnknownTimer(t *testing.T) {
	app, _, out := setupTestAppWithMockBusinessAPI()

	err := NewWatchCommand(app).Execute(context.Background(), []string{"missing"})

	assert.EqualError(t, err, "failed to watch timer: timer not found: missing")
	assert.Empty(t, out.String())
}

func newTestWatchModel(t *testing.T) (watchModel, *mockBusinessAPI) {
	t.Helper()
	mock := newMockBusinessAPI()
	view, err := mock.CreateTimer(context.Background(), "Focus", api.TimerSettingsInput{CycleGoal: intPtr(4)})
	require.NoError(t, err)
	mock.calls = nil
	return newWatchModel(context.Background(), mock, view, time.Second, time.Second), mock
}

func TestWatchModel_View(t *testing.T) {
	m, _ := newTestWatchModel(t)

	view := m.View()

	assert.Contains(t, view, "Focus")
	assert.Contains(t, view, "WORKING")
	assert.Contains(t, view, "paused")
	assert.Contains(t, view, "25:00")
	assert.Contains(t, view, "cycles 0/4")
	assert.NotContains(t, view, "goal reached")
}

func TestWatchModel_TimerUpdate(t *testing.T) {
	m, _ := newTestWatchModel(t)

	updated := *m.view
	updated.Phase = "break"
	updated.IsPaused = false
	updated.Remaining = "03:12"
	updated.CyclesCompleted = 4
	updated.GoalReached = true

	model, cmd := m.Update(timerMsg{view: &updated})
	assert.Nil(t, cmd)

	view := model.View()
	assert.Contains(t, view, "BREAK")
	assert.Contains(t, view, "03:12")
	assert.Contains(t, view, "cycles 4/4")
	assert.Contains(t, view, "goal reached")
	assert.NotContains(t, view, "paused")
}

func TestWatchModel_TransientErrorIsShown(t *testing.T) {
	m, _ := newTestWatchModel(t)

	model, cmd := m.Update(timerMsg{err: apperrors.NewTimeoutError("sync timer", "1s")})

	assert.Nil(t, cmd)
	assert.Contains(t, model.View(), "The operation timed out. Please try again.")
	assert.Contains(t, model.View(), "25:00", "last known state stays on screen")
}

func TestWatchModel_DeletedTimerQuits(t *testing.T) {
	m, _ := newTestWatchModel(t)

	_, cmd := m.Update(timerMsg{err: apperrors.NewNotFoundError("timer", m.id)})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestWatchModel_Keys(t *testing.T) {
	tests := []struct {
		name     string
		key      tea.KeyMsg
		paused   bool
		wantCall string
	}{
		{name: "space resumes a paused timer", key: tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, paused: true, wantCall: "resume"},
		{name: "p pauses a running timer", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}}, paused: false, wantCall: "pause"},
		{name: "s skips", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}, paused: true, wantCall: "skip"},
		{name: "r resets", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}, paused: true, wantCall: "reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			m, mock := newTestWatchModel(t)
			m.view.IsPaused = tt.paused

			// Act
			_, cmd := m.Update(tt.key)
			require.NotNil(t, cmd)
			msg := cmd()

			// Assert
			assert.Equal(t, []string{tt.wantCall}, mock.calls)
			result, ok := msg.(timerMsg)
			require.True(t, ok)
			assert.NoError(t, result.err)
			assert.NotNil(t, result.view)
		})
	}
}

func TestWatchModel_Quit(t *testing.T) {
	m, mock := newTestWatchModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, mock.calls)
}

func TestWatchModel_TickPolls(t *testing.T) {
	m, _ := newTestWatchModel(t)

	_, cmd := m.Update(tickMsg(time.Now()))

	assert.NotNil(t, cmd, "tick schedules a poll and the next tick")
}
