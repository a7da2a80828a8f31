package scheduling

import (
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
)

// SlotRules decides which date and time picker values are selectable
type SlotRules struct {
	Config Config
	Now    func() time.Time
}

// NewSlotRules constructs SlotRules on the real clock
func NewSlotRules(config Config) *SlotRules {
	return &SlotRules{
		Config: config,
		Now:    time.Now,
	}
}

// IsTimeDisabled checks a single candidate time against the working hours window
// and the operator's busy ranges, each padded by the conflict buffer
func (r *SlotRules) IsTimeDisabled(candidate time.Time, busyRanges []date.Timespan) bool {
	window := date.ClockWindow{
		StartHour: r.Config.WorkingHoursStart,
		EndHour:   r.Config.WorkingHoursEnd,
	}

	if !window.ContainsClock(candidate) {
		return true
	}

	for _, busy := range busyRanges {
		padded := busy.Pad(r.Config.ConflictBuffer)
		if padded.ContainsTimeInclusive(candidate) {
			return true
		}
	}

	return false
}

// IsDateDisabled disables calendar dates before today
func (r *SlotRules) IsDateDisabled(candidate time.Time) bool {
	return date.IsDateBeforeToday(candidate, r.Now())
}

// EarliestStart returns the first allowed start time for a new activity
func (r *SlotRules) EarliestStart() time.Time {
	return r.Now().Add(r.Config.MinimumLead)
}
