package validation

import (
	"time"

	"overlay-widgets/internal/config"
	"overlay-widgets/internal/domain"
)

// TimerValidator provides validation for timer-related operations
type TimerValidator struct {
	validator *Validator
}

// NewTimerValidator creates a new timer validator with default limits
func NewTimerValidator() *TimerValidator {
	return &TimerValidator{validator: NewValidator()}
}

// NewTimerValidatorWithConfig creates a timer validator using configured limits
func NewTimerValidatorWithConfig(cfg *config.Config) *TimerValidator {
	return &TimerValidator{validator: NewValidatorWithConfig(cfg)}
}

// ValidateTimerName validates a timer name for creation or rename
func (tv *TimerValidator) ValidateTimerName(name string) error {
	validationError := NewValidationError()
	limits := tv.validator.Limits()

	trimmedName := tv.validator.TrimAndValidateString(name)
	if !tv.validator.IsNonEmptyString(trimmedName) {
		validationError.AddRequiredError("name")
		return validationError
	}

	if !tv.validator.IsValidTimerNameLength(trimmedName) {
		validationError.AddInvalidLengthError("name", trimmedName, limits.NameMinLength, limits.NameMaxLength)
	}

	if tv.validator.HasControlCharacters(trimmedName) {
		validationError.AddInvalidCharacterError("name", trimmedName)
	}

	return validationError.ErrOrNil()
}

// GetValidTimerName returns the cleaned timer name if it is valid
func (tv *TimerValidator) GetValidTimerName(name string) (string, error) {
	if err := tv.ValidateTimerName(name); err != nil {
		return "", err
	}
	return tv.validator.TrimAndValidateString(name), nil
}

// ValidateSettings checks phase durations and the cycle goal. Durations that
// pass here are always strictly positive.
func (tv *TimerValidator) ValidateSettings(settings domain.TimerSettings) error {
	validationError := NewValidationError()
	limits := tv.validator.Limits()

	if !tv.validator.IsValidPhaseDuration(settings.WorkDuration) {
		validationError.AddOutOfBoundsError("work_duration", settings.WorkDuration, limits.MinPhaseDuration, limits.MaxPhaseDuration)
	}
	if !tv.validator.IsValidPhaseDuration(settings.BreakDuration) {
		validationError.AddOutOfBoundsError("break_duration", settings.BreakDuration, limits.MinPhaseDuration, limits.MaxPhaseDuration)
	}
	if !tv.validator.IsValidCycleGoal(settings.CycleGoal) {
		validationError.AddOutOfBoundsError("cycle_goal", settings.CycleGoal, 0, limits.MaxCycleGoal)
	}

	return validationError.ErrOrNil()
}

// ValidateTimerForCreation validates the name and settings of a new timer
func (tv *TimerValidator) ValidateTimerForCreation(name string, settings domain.TimerSettings) error {
	validationError := NewValidationError()
	validationError.Merge(tv.ValidateTimerName(name))
	validationError.Merge(tv.ValidateSettings(settings))
	return validationError.ErrOrNil()
}

// ValidateTimerID validates a timer identifier
func (tv *TimerValidator) ValidateTimerID(id string) error {
	validationError := NewValidationError()

	if !tv.validator.IsNonEmptyString(id) {
		validationError.AddRequiredError("timer_id")
		return validationError
	}
	if !tv.validator.IsValidTimerID(id) {
		validationError.AddInvalidFormatError("timer_id", id, "UUID")
	}

	return validationError.ErrOrNil()
}

// ValidateAdjustment validates a manual change to the remaining time
func (tv *TimerValidator) ValidateAdjustment(delta time.Duration) error {
	validationError := NewValidationError()

	if !tv.validator.IsValidAdjustment(delta) {
		limit := tv.validator.Limits().MaxPhaseDuration
		validationError.AddInvalidRangeError("delta", delta, "must be non-zero and at most "+limit.String()+" either way")
	}

	return validationError.ErrOrNil()
}

// DefaultSettings returns the configured settings for new timers
func (tv *TimerValidator) DefaultSettings() domain.TimerSettings {
	limits := tv.validator.Limits()
	return domain.TimerSettings{
		WorkDuration:  limits.DefaultWorkDuration,
		BreakDuration: limits.DefaultBreakDuration,
		CycleGoal:     limits.DefaultCycleGoal,
	}
}
