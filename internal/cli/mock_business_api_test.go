package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"overlay-widgets/internal/api"
	apperrors "overlay-widgets/internal/errors"
)

// mockBusinessAPI implements the BusinessAPI interface for testing
type mockBusinessAPI struct {
	timers map[string]*api.TimerView
	order  []string
	nextID int

	// failWith is returned by every call when set
	failWith error
	calls    []string
}

// newMockBusinessAPI creates a new mock BusinessAPI instance
func newMockBusinessAPI() *mockBusinessAPI {
	return &mockBusinessAPI{
		timers: make(map[string]*api.TimerView),
		nextID: 1,
	}
}

func (m *mockBusinessAPI) record(call string) error {
	m.calls = append(m.calls, call)
	return m.failWith
}

func (m *mockBusinessAPI) get(id string) (*api.TimerView, error) {
	timer, ok := m.timers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("timer", id)
	}
	return timer, nil
}

func copyView(view *api.TimerView) *api.TimerView {
	v := *view
	return &v
}

func setRemaining(view *api.TimerView, remaining time.Duration) {
	view.RemainingMs = remaining.Milliseconds()
	view.Remaining = api.FormatRemaining(remaining)
}

func (m *mockBusinessAPI) phaseLength(view *api.TimerView) time.Duration {
	if view.Phase == "working" {
		return time.Duration(view.WorkMs) * time.Millisecond
	}
	return time.Duration(view.BreakMs) * time.Millisecond
}

func (m *mockBusinessAPI) CreateTimer(ctx context.Context, name string, input api.TimerSettingsInput) (*api.TimerView, error) {
	if err := m.record("create"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewValidationError("timer name is required", nil)
	}

	work, brk := 25*time.Minute, 5*time.Minute
	if input.WorkDuration != 0 {
		work = input.WorkDuration
	}
	if input.BreakDuration != 0 {
		brk = input.BreakDuration
	}
	view := &api.TimerView{
		ID:       fmt.Sprintf("timer-%d", m.nextID),
		Name:     name,
		Phase:    "working",
		IsPaused: true,
		WorkMs:   work.Milliseconds(),
		BreakMs:  brk.Milliseconds(),
	}
	if input.CycleGoal != nil {
		view.CycleGoal = *input.CycleGoal
	}
	setRemaining(view, work)

	m.nextID++
	m.timers[view.ID] = view
	m.order = append(m.order, view.ID)
	return copyView(view), nil
}

func (m *mockBusinessAPI) ConfigureTimer(ctx context.Context, id string, input api.TimerSettingsInput) (*api.TimerView, error) {
	if err := m.record("configure"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if input.WorkDuration != 0 {
		view.WorkMs = input.WorkDuration.Milliseconds()
	}
	if input.BreakDuration != 0 {
		view.BreakMs = input.BreakDuration.Milliseconds()
	}
	if input.CycleGoal != nil {
		view.CycleGoal = *input.CycleGoal
	}
	if length := m.phaseLength(view); time.Duration(view.RemainingMs)*time.Millisecond > length {
		setRemaining(view, length)
	}
	return copyView(view), nil
}

func (m *mockBusinessAPI) DeleteTimer(ctx context.Context, id string) error {
	if err := m.record("delete"); err != nil {
		return err
	}
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.timers, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockBusinessAPI) PauseTimer(ctx context.Context, id string) (*api.TimerView, error) {
	if err := m.record("pause"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	view.IsPaused = true
	return copyView(view), nil
}

func (m *mockBusinessAPI) ResumeTimer(ctx context.Context, id string) (*api.TimerView, error) {
	if err := m.record("resume"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	view.IsPaused = false
	return copyView(view), nil
}

func (m *mockBusinessAPI) SkipPhase(ctx context.Context, id string) (*api.TimerView, error) {
	if err := m.record("skip"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if view.Phase == "working" {
		view.Phase = "break"
	} else {
		view.Phase = "working"
	}
	setRemaining(view, m.phaseLength(view))
	return copyView(view), nil
}

func (m *mockBusinessAPI) ResetTimer(ctx context.Context, id string) (*api.TimerView, error) {
	if err := m.record("reset"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	view.Phase = "working"
	view.IsPaused = true
	view.CyclesCompleted = 0
	view.GoalReached = false
	setRemaining(view, m.phaseLength(view))
	return copyView(view), nil
}

func (m *mockBusinessAPI) AdjustTimer(ctx context.Context, id string, delta time.Duration) (*api.TimerView, error) {
	if err := m.record("adjust"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	remaining := time.Duration(view.RemainingMs)*time.Millisecond + delta
	if remaining < 0 {
		remaining = 0
	}
	if length := m.phaseLength(view); remaining > length {
		remaining = length
	}
	setRemaining(view, remaining)
	return copyView(view), nil
}

func (m *mockBusinessAPI) GetTimer(ctx context.Context, id string) (*api.TimerView, error) {
	if err := m.record("get"); err != nil {
		return nil, err
	}
	view, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return copyView(view), nil
}

func (m *mockBusinessAPI) ListTimers(ctx context.Context) ([]*api.TimerView, error) {
	if err := m.record("list"); err != nil {
		return nil, err
	}
	views := make([]*api.TimerView, 0, len(m.order))
	for _, id := range m.order {
		views = append(views, copyView(m.timers[id]))
	}
	return views, nil
}

// setupTestAppWithMockBusinessAPI creates an App writing to a buffer
func setupTestAppWithMockBusinessAPI() (*App, *mockBusinessAPI, *strings.Builder) {
	mock := newMockBusinessAPI()
	out := &strings.Builder{}
	return NewApp(mock, nil, out), mock, out
}
