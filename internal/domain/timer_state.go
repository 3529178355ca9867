package domain

import (
	"time"

	apperrors "overlay-widgets/internal/errors"
)

// TimerState is the persisted countdown of a pomodoro timer.
// It is a plain value: operations take a state and return a new one,
// and the caller is responsible for storing the result.
type TimerState struct {
	Phase                 Phase
	IsPaused              bool
	LastActionTime        time.Time
	RemainingAtLastAction time.Duration
	CyclesCompleted       int
	WorkDuration          time.Duration
	BreakDuration         time.Duration
}

// NewTimerState returns the state of a freshly configured timer: paused at
// the start of a working phase with no completed cycles.
func NewTimerState(workDuration, breakDuration time.Duration, now time.Time) (TimerState, error) {
	state := TimerState{
		Phase:                 PhaseWorking,
		IsPaused:              true,
		LastActionTime:        now,
		RemainingAtLastAction: workDuration,
		WorkDuration:          workDuration,
		BreakDuration:         breakDuration,
	}
	if err := state.validateDurations(); err != nil {
		return TimerState{}, err
	}
	return state, nil
}

// PhaseDuration returns the configured length of phase p.
func (s TimerState) PhaseDuration(p Phase) time.Duration {
	if p == PhaseWorking {
		return s.WorkDuration
	}
	return s.BreakDuration
}

// CurrentPhaseDuration returns the configured length of the current phase.
func (s TimerState) CurrentPhaseDuration() time.Duration {
	return s.PhaseDuration(s.Phase)
}

func (s TimerState) validateDurations() error {
	if s.WorkDuration <= 0 {
		return apperrors.NewInvalidConfigurationError("work_duration", s.WorkDuration)
	}
	if s.BreakDuration <= 0 {
		return apperrors.NewInvalidConfigurationError("break_duration", s.BreakDuration)
	}
	return nil
}

// Reconcile catches state up to now, applying every phase transition that
// happened since LastActionTime. It returns the updated state and the time
// left in the resulting phase.
//
// A paused state is returned unchanged. A now earlier than LastActionTime is
// treated as no time passing. Non-positive phase durations fail with an
// InvalidConfiguration error.
func Reconcile(state TimerState, now time.Time) (TimerState, time.Duration, error) {
	if err := state.validateDurations(); err != nil {
		return state, 0, err
	}
	if state.IsPaused {
		return state, state.RemainingAtLastAction, nil
	}

	elapsed := now.Sub(state.LastActionTime)
	if elapsed < 0 {
		elapsed = 0
	}

	phase := state.Phase
	cycles := state.CyclesCompleted
	remaining := state.RemainingAtLastAction
	fullCycle := state.WorkDuration + state.BreakDuration

	for elapsed >= remaining {
		elapsed -= remaining
		if phase == PhaseWorking {
			cycles++
		}
		phase = phase.Next()
		remaining = state.PhaseDuration(phase)

		// At a phase boundary every whole work+break cycle holds exactly one
		// working completion and ends in the same phase.
		if skipped := elapsed / fullCycle; skipped > 0 {
			elapsed -= skipped * fullCycle
			cycles += int(skipped)
		}
	}

	display := remaining - elapsed

	state.Phase = phase
	state.CyclesCompleted = cycles
	state.LastActionTime = now
	state.RemainingAtLastAction = display
	return state, display, nil
}
