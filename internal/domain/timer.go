package domain

import (
	"time"
)

// Timer is a pomodoro overlay widget.
type Timer struct {
	ID        string
	Name      string
	CycleGoal int
	State     TimerState
	CreatedAt time.Time
	UpdatedAt time.Time
	// Version is the stored row version this timer was loaded at.
	Version int64
}

// TimerSettings holds the user-configurable parts of a timer.
type TimerSettings struct {
	WorkDuration  time.Duration
	BreakDuration time.Duration
	CycleGoal     int
}

// NewTimer creates a paused timer at the start of its first working phase.
func NewTimer(id, name string, settings TimerSettings, now time.Time) (Timer, error) {
	state, err := NewTimerState(settings.WorkDuration, settings.BreakDuration, now)
	if err != nil {
		return Timer{}, err
	}
	return Timer{
		ID:        id,
		Name:      name,
		CycleGoal: settings.CycleGoal,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Settings returns the timer's current configuration.
func (t Timer) Settings() TimerSettings {
	return TimerSettings{
		WorkDuration:  t.State.WorkDuration,
		BreakDuration: t.State.BreakDuration,
		CycleGoal:     t.CycleGoal,
	}
}

// GoalReached reports whether the timer has a goal and has met it.
func (t Timer) GoalReached() bool {
	return t.CycleGoal > 0 && t.State.CyclesCompleted >= t.CycleGoal
}

// GoalCrossed reports whether moving from before to after completed cycles
// reaches goal for the first time. A goal of zero is never crossed.
func GoalCrossed(before, after, goal int) bool {
	return goal > 0 && before < goal && after >= goal
}
