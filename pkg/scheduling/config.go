package scheduling

import (
	"strconv"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/environment"
)

// Config holds the scheduling business rules
type Config struct {
	// WorkingHoursStart and WorkingHoursEnd span the allowed hours of day, half open
	WorkingHoursStart int
	WorkingHoursEnd   int

	// ConflictBuffer is applied on both sides of every busy range
	ConflictBuffer time.Duration

	// MinimumLead is the minimum distance from now for a new activity start
	MinimumLead time.Duration
}

// DefaultConfig returns the standard business rules
func DefaultConfig() Config {
	return Config{
		WorkingHoursStart: 8,
		WorkingHoursEnd:   20,
		ConflictBuffer:    time.Minute,
		MinimumLead:       5 * time.Minute,
	}
}

// NewConfigFromEnvironment builds a Config with overrides from the environment
func NewConfigFromEnvironment(env environment.Environment) Config {
	config := DefaultConfig()

	if value, err := strconv.Atoi(env.WorkingHoursStart); err == nil {
		config.WorkingHoursStart = value
	}

	if value, err := strconv.Atoi(env.WorkingHoursEnd); err == nil {
		config.WorkingHoursEnd = value
	}

	if value, err := strconv.Atoi(env.ConflictBufferMinutes); err == nil {
		config.ConflictBuffer = time.Duration(value) * time.Minute
	}

	if value, err := strconv.Atoi(env.MinimumLeadMinutes); err == nil {
		config.MinimumLead = time.Duration(value) * time.Minute
	}

	return config
}
