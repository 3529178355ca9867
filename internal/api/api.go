// Package api is the workflow surface shared by the CLI and the HTTP server.
package api

import (
	"fmt"
	"time"

	"overlay-widgets/internal/services"
)

// TimerView is the presentation form of a reconciled timer
type TimerView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phase           string    `json:"phase"`
	IsPaused        bool      `json:"is_paused"`
	RemainingMs     int64     `json:"remaining_ms"`
	Remaining       string    `json:"remaining"` // MM:SS, or H:MM:SS from one hour up
	CyclesCompleted int       `json:"cycles_completed"`
	CycleGoal       int       `json:"cycle_goal"`
	WorkMs          int64     `json:"work_ms"`
	BreakMs         int64     `json:"break_ms"`
	GoalReached     bool      `json:"goal_reached"`
	AsOf            time.Time `json:"as_of"`
}

// TimerSettingsInput holds raw settings from a caller. Zero durations and a
// nil goal keep the current value, or the configured default for a new timer.
type TimerSettingsInput struct {
	WorkDuration  time.Duration
	BreakDuration time.Duration
	CycleGoal     *int
}

// NewTimerView builds the view of a service snapshot
func NewTimerView(snapshot *services.TimerSnapshot) *TimerView {
	timer := snapshot.Timer
	return &TimerView{
		ID:              timer.ID,
		Name:            timer.Name,
		Phase:           timer.State.Phase.String(),
		IsPaused:        timer.State.IsPaused,
		RemainingMs:     snapshot.Remaining.Milliseconds(),
		Remaining:       FormatRemaining(snapshot.Remaining),
		CyclesCompleted: timer.State.CyclesCompleted,
		CycleGoal:       timer.CycleGoal,
		WorkMs:          timer.State.WorkDuration.Milliseconds(),
		BreakMs:         timer.State.BreakDuration.Milliseconds(),
		GoalReached:     timer.GoalReached(),
		AsOf:            snapshot.AsOf,
	}
}

// FormatRemaining renders a countdown. Partial seconds round up so the
// display reads 00:00 only once the phase is over.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64((d + time.Second - 1) / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
