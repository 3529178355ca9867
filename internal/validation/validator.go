package validation

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"overlay-widgets/internal/config"
)

// Validator provides common validation utilities. Limits come from the timer
// configuration, or its defaults when none is given.
type Validator struct {
	limits config.TimerConfig
}

// NewValidator creates a new validator instance using default limits
func NewValidator() *Validator {
	return &Validator{limits: config.NewConfig().Timer}
}

// NewValidatorWithConfig creates a new validator instance with configuration
func NewValidatorWithConfig(cfg *config.Config) *Validator {
	if cfg == nil {
		return NewValidator()
	}
	return &Validator{limits: cfg.Timer}
}

// Limits returns the limits the validator checks against
func (v *Validator) Limits() config.TimerConfig {
	return v.limits
}

// IsNonEmptyString checks if a string is not empty after trimming whitespace
func (v *Validator) IsNonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidStringLength checks if the trimmed string has between min and max
// characters
func (v *Validator) IsValidStringLength(s string, min, max int) bool {
	length := utf8.RuneCountInString(strings.TrimSpace(s))
	return length >= min && length <= max
}

// IsValidTimerNameLength checks a timer name against the configured limits
func (v *Validator) IsValidTimerNameLength(name string) bool {
	return v.IsValidStringLength(name, v.limits.NameMinLength, v.limits.NameMaxLength)
}

// HasControlCharacters reports whether s contains newlines, tabs or other
// control characters. Names are shown on stream overlays and must stay on
// one line.
func (v *Validator) HasControlCharacters(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// IsValidPhaseDuration checks a work or break duration against the
// configured limits
func (v *Validator) IsValidPhaseDuration(d time.Duration) bool {
	return d >= v.limits.MinPhaseDuration && d <= v.limits.MaxPhaseDuration
}

// IsValidCycleGoal checks a cycle goal. Zero means no goal.
func (v *Validator) IsValidCycleGoal(goal int) bool {
	return goal >= 0 && goal <= v.limits.MaxCycleGoal
}

// IsValidAdjustment checks that a manual time adjustment is non-zero and no
// larger than the longest allowed phase
func (v *Validator) IsValidAdjustment(delta time.Duration) bool {
	if delta == 0 {
		return false
	}
	if delta < 0 {
		delta = -delta
	}
	return delta <= v.limits.MaxPhaseDuration
}

// IsValidTimerID checks that id is a UUID
func (v *Validator) IsValidTimerID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// TrimAndValidateString trims whitespace and returns the cleaned string
func (v *Validator) TrimAndValidateString(s string) string {
	return strings.TrimSpace(s)
}
