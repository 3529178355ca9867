package domain

import (
	"time"
)

// Pause reconciles state to now and freezes the remaining time.
func Pause(state TimerState, now time.Time) (TimerState, error) {
	next, _, err := Reconcile(state, now)
	if err != nil {
		return state, err
	}
	next.IsPaused = true
	next.LastActionTime = now
	return next, nil
}

// Resume starts the countdown from the frozen remaining time. Resuming a
// running timer only reconciles it.
func Resume(state TimerState, now time.Time) (TimerState, error) {
	next, _, err := Reconcile(state, now)
	if err != nil {
		return state, err
	}
	next.IsPaused = false
	next.LastActionTime = now
	return next, nil
}

// Skip ends the current phase early and starts the next one with its full
// duration. A skipped working phase does not count as a completed cycle.
func Skip(state TimerState, now time.Time) (TimerState, error) {
	next, _, err := Reconcile(state, now)
	if err != nil {
		return state, err
	}
	next.Phase = next.Phase.Next()
	next.RemainingAtLastAction = next.CurrentPhaseDuration()
	next.LastActionTime = now
	return next, nil
}

// Adjust adds delta (which may be negative) to the time left in the current
// phase. The result is clamped to [0, phase duration].
func Adjust(state TimerState, now time.Time, delta time.Duration) (TimerState, error) {
	next, _, err := Reconcile(state, now)
	if err != nil {
		return state, err
	}
	next.RemainingAtLastAction = clampDuration(next.RemainingAtLastAction+delta, 0, next.CurrentPhaseDuration())
	next.LastActionTime = now
	return next, nil
}

// Reset returns the timer to its creation defaults, keeping the configured
// durations.
func Reset(state TimerState, now time.Time) (TimerState, error) {
	return NewTimerState(state.WorkDuration, state.BreakDuration, now)
}

// Reconfigure changes the phase durations. Time already elapsed is settled
// against the old durations, then the remaining time is clamped to the new
// length of the current phase.
func Reconfigure(state TimerState, now time.Time, workDuration, breakDuration time.Duration) (TimerState, error) {
	candidate := state
	candidate.WorkDuration = workDuration
	candidate.BreakDuration = breakDuration
	if err := candidate.validateDurations(); err != nil {
		return state, err
	}

	next, _, err := Reconcile(state, now)
	if err != nil {
		return state, err
	}
	next.WorkDuration = workDuration
	next.BreakDuration = breakDuration
	next.RemainingAtLastAction = clampDuration(next.RemainingAtLastAction, 0, next.CurrentPhaseDuration())
	next.LastActionTime = now
	return next, nil
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
