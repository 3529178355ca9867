package services

import (
	"context"
	"time"

	"overlay-widgets/internal/domain"
	"overlay-widgets/internal/events"
)

// TimerSnapshot is a timer reconciled to AsOf
type TimerSnapshot struct {
	Timer     domain.Timer  `json:"timer"`
	Remaining time.Duration `json:"remaining"` // Time left in the current phase at AsOf
	AsOf      time.Time     `json:"as_of"`

	// PhaseChanged is set when at least one phase transition happened
	// during this call, either elapsed or forced by a control.
	PhaseChanged bool `json:"phase_changed"`
	// GoalReached is set only on the call that crossed the cycle goal.
	GoalReached bool `json:"goal_reached"`
}

// TimerService handles timer lifecycle operations. It is the only place
// that reconciles and persists timer state.
type TimerService interface {
	// Timer CRUD operations
	CreateTimer(ctx context.Context, name string, settings domain.TimerSettings) (*TimerSnapshot, error)
	GetTimer(ctx context.Context, id string) (*domain.Timer, error)
	ListTimers(ctx context.Context) ([]*TimerSnapshot, error)
	DeleteTimer(ctx context.Context, id string) error

	// Reconciliation
	SyncTimer(ctx context.Context, id string) (*TimerSnapshot, error)
	SyncRunningTimers(ctx context.Context) ([]*TimerSnapshot, error)
	CurrentState(ctx context.Context, id string) (events.TimerPayload, error)

	// Controls
	PauseTimer(ctx context.Context, id string) (*TimerSnapshot, error)
	ResumeTimer(ctx context.Context, id string) (*TimerSnapshot, error)
	SkipPhase(ctx context.Context, id string) (*TimerSnapshot, error)
	AdjustTimer(ctx context.Context, id string, delta time.Duration) (*TimerSnapshot, error)
	ResetTimer(ctx context.Context, id string) (*TimerSnapshot, error)
	ConfigureTimer(ctx context.Context, id string, settings domain.TimerSettings) (*TimerSnapshot, error)
}
