// Package events carries timer change notifications from the service layer
// to overlays, logs and the message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"overlay-widgets/internal/domain"
)

// EventType names a kind of timer notification
type EventType string

const (
	EventTimerUpdated  EventType = "timer.updated"
	EventPhaseChanged  EventType = "timer.phase_changed"
	EventGoalReached   EventType = "timer.goal_reached"
	EventTimerDeleted  EventType = "timer.deleted"
	EventTimerSnapshot EventType = "timer.snapshot"
)

// Event is a single notification about one timer
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	TimerID   string          `json:"timer_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent builds an event with a fresh ID and data encoded as JSON. A nil
// data leaves the payload empty.
func NewEvent(eventType EventType, timerID string, at time.Time, data interface{}) (Event, error) {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TimerID:   timerID,
		Timestamp: at,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		event.Data = raw
	}
	return event, nil
}

// Decode unmarshals the event payload into v
func (e Event) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Data, v)
}

// TimerPayload is the timer state carried by update and snapshot events.
// Overlays count down locally from RemainingMs as of AsOf.
type TimerPayload struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phase           string    `json:"phase"`
	IsPaused        bool      `json:"is_paused"`
	RemainingMs     int64     `json:"remaining_ms"`
	CyclesCompleted int       `json:"cycles_completed"`
	CycleGoal       int       `json:"cycle_goal"`
	WorkMs          int64     `json:"work_ms"`
	BreakMs         int64     `json:"break_ms"`
	AsOf            time.Time `json:"as_of"`
}

// NewTimerPayload describes timer with remaining time measured at asOf
func NewTimerPayload(timer domain.Timer, remaining time.Duration, asOf time.Time) TimerPayload {
	return TimerPayload{
		ID:              timer.ID,
		Name:            timer.Name,
		Phase:           string(timer.State.Phase),
		IsPaused:        timer.State.IsPaused,
		RemainingMs:     remaining.Milliseconds(),
		CyclesCompleted: timer.State.CyclesCompleted,
		CycleGoal:       timer.CycleGoal,
		WorkMs:          timer.State.WorkDuration.Milliseconds(),
		BreakMs:         timer.State.BreakDuration.Milliseconds(),
		AsOf:            asOf,
	}
}

// PhaseChangedPayload accompanies EventPhaseChanged
type PhaseChangedPayload struct {
	From            string `json:"from"`
	To              string `json:"to"`
	CyclesCompleted int    `json:"cycles_completed"`
}

// GoalReachedPayload accompanies EventGoalReached
type GoalReachedPayload struct {
	CycleGoal       int `json:"cycle_goal"`
	CyclesCompleted int `json:"cycles_completed"`
}
