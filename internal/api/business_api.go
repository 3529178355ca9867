package api

import (
	"context"
	"time"

	"overlay-widgets/internal/config"
	"overlay-widgets/internal/domain"
	"overlay-widgets/internal/errors"
	"overlay-widgets/internal/services"
	"overlay-widgets/internal/validation"
)

// BusinessAPI defines the timer workflows available to the CLI and HTTP server
type BusinessAPI interface {
	// ========== Timer Management ==========

	// CreateTimer validates the input and creates a paused timer
	CreateTimer(ctx context.Context, name string, input TimerSettingsInput) (*TimerView, error)

	// ConfigureTimer changes durations and goal of an existing timer
	ConfigureTimer(ctx context.Context, id string, input TimerSettingsInput) (*TimerView, error)

	// DeleteTimer removes a timer
	DeleteTimer(ctx context.Context, id string) error

	// ========== Controls ==========

	PauseTimer(ctx context.Context, id string) (*TimerView, error)
	ResumeTimer(ctx context.Context, id string) (*TimerView, error)
	SkipPhase(ctx context.Context, id string) (*TimerView, error)
	ResetTimer(ctx context.Context, id string) (*TimerView, error)

	// AdjustTimer adds delta (negative to subtract) to the current phase
	AdjustTimer(ctx context.Context, id string, delta time.Duration) (*TimerView, error)

	// ========== Query Operations ==========

	// GetTimer returns the timer reconciled to now
	GetTimer(ctx context.Context, id string) (*TimerView, error)

	// ListTimers returns every timer reconciled to now
	ListTimers(ctx context.Context) ([]*TimerView, error)
}

// businessAPIImpl implements the BusinessAPI interface
type businessAPIImpl struct {
	timers         services.TimerService
	timerValidator *validation.TimerValidator
}

// NewBusinessAPI creates a new BusinessAPI over the timer service. Limits and
// defaults come from cfg.
func NewBusinessAPI(timers services.TimerService, cfg *config.Config) BusinessAPI {
	return &businessAPIImpl{
		timers:         timers,
		timerValidator: validation.NewTimerValidatorWithConfig(cfg),
	}
}

// validationError wraps a validator failure with its user-facing message
func validationError(err error) error {
	if ve, ok := err.(*validation.ValidationError); ok {
		return errors.NewValidationError(ve.GetUserFriendlyMessage(), err)
	}
	return errors.NewValidationError("invalid input", err)
}

func (b *businessAPIImpl) validateID(id string) error {
	if err := b.timerValidator.ValidateTimerID(id); err != nil {
		return validationError(err)
	}
	return nil
}

func mergeSettings(base domain.TimerSettings, input TimerSettingsInput) domain.TimerSettings {
	if input.WorkDuration != 0 {
		base.WorkDuration = input.WorkDuration
	}
	if input.BreakDuration != 0 {
		base.BreakDuration = input.BreakDuration
	}
	if input.CycleGoal != nil {
		base.CycleGoal = *input.CycleGoal
	}
	return base
}

func viewOf(snapshot *services.TimerSnapshot, err error) (*TimerView, error) {
	if err != nil {
		return nil, err
	}
	return NewTimerView(snapshot), nil
}

// ========== Timer Management ==========

func (b *businessAPIImpl) CreateTimer(ctx context.Context, name string, input TimerSettingsInput) (*TimerView, error) {
	// 1. Fill in defaults and validate
	settings := mergeSettings(b.timerValidator.DefaultSettings(), input)
	if err := b.timerValidator.ValidateTimerForCreation(name, settings); err != nil {
		return nil, validationError(err)
	}

	cleanedName, err := b.timerValidator.GetValidTimerName(name)
	if err != nil {
		return nil, validationError(err)
	}

	// 2. Create
	return viewOf(b.timers.CreateTimer(ctx, cleanedName, settings))
}

func (b *businessAPIImpl) ConfigureTimer(ctx context.Context, id string, input TimerSettingsInput) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}

	current, err := b.timers.GetTimer(ctx, id)
	if err != nil {
		return nil, err
	}

	settings := mergeSettings(current.Settings(), input)
	if err := b.timerValidator.ValidateSettings(settings); err != nil {
		return nil, validationError(err)
	}

	return viewOf(b.timers.ConfigureTimer(ctx, id, settings))
}

func (b *businessAPIImpl) DeleteTimer(ctx context.Context, id string) error {
	if err := b.validateID(id); err != nil {
		return err
	}
	return b.timers.DeleteTimer(ctx, id)
}

// ========== Controls ==========

func (b *businessAPIImpl) PauseTimer(ctx context.Context, id string) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}
	return viewOf(b.timers.PauseTimer(ctx, id))
}

func (b *businessAPIImpl) ResumeTimer(ctx context.Context, id string) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}
	return viewOf(b.timers.ResumeTimer(ctx, id))
}

func (b *businessAPIImpl) SkipPhase(ctx context.Context, id string) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}
	return viewOf(b.timers.SkipPhase(ctx, id))
}

func (b *businessAPIImpl) ResetTimer(ctx context.Context, id string) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}
	return viewOf(b.timers.ResetTimer(ctx, id))
}

func (b *businessAPIImpl) AdjustTimer(ctx context.Context, id string, delta time.Duration) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}
	if err := b.timerValidator.ValidateAdjustment(delta); err != nil {
		return nil, validationError(err)
	}
	return viewOf(b.timers.AdjustTimer(ctx, id, delta))
}

// ========== Query Operations ==========

func (b *businessAPIImpl) GetTimer(ctx context.Context, id string) (*TimerView, error) {
	if err := b.validateID(id); err != nil {
		return nil, err
	}
	return viewOf(b.timers.SyncTimer(ctx, id))
}

func (b *businessAPIImpl) ListTimers(ctx context.Context) ([]*TimerView, error) {
	snapshots, err := b.timers.ListTimers(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*TimerView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, NewTimerView(snapshot))
	}
	return views, nil
}
