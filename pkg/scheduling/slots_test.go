package scheduling

import (
	"testing"
	"time"

	"github.com/gestionale-app/commesse-backend/pkg/date"
)

func testSlotRules() *SlotRules {
	rules := NewSlotRules(DefaultConfig())
	rules.Now = func() time.Time {
		return timeDate(2024, 6, 15, 12, 0, 0)
	}
	return rules
}

func TestSlotRules_IsTimeDisabledWorkingHours(t *testing.T) {
	rules := testSlotRules()

	var workingHoursTests = []struct {
		candidate time.Time
		out       bool
	}{
		{timeDate(2024, 6, 15, 7, 59, 0), true},
		{timeDate(2024, 6, 15, 8, 0, 0), false},
		{timeDate(2024, 6, 15, 19, 59, 0), false},
		{timeDate(2024, 6, 15, 20, 0, 0), true},
		{timeDate(2024, 6, 15, 3, 0, 0), true},
	}

	for _, tt := range workingHoursTests {
		if got := rules.IsTimeDisabled(tt.candidate, nil); got != tt.out {
			t.Errorf("IsTimeDisabled(%s) = %v, want %v", tt.candidate, got, tt.out)
		}
	}
}

func TestSlotRules_IsTimeDisabledBusyBuffer(t *testing.T) {
	rules := testSlotRules()

	busy := []date.Timespan{
		{Start: timeDate(2024, 6, 15, 10, 0, 0), End: timeDate(2024, 6, 15, 11, 0, 0)},
	}

	// The disabled window around the busy range is [09:59, 11:01]
	var bufferTests = []struct {
		candidate time.Time
		out       bool
	}{
		{timeDate(2024, 6, 15, 10, 59, 30), true},
		{timeDate(2024, 6, 15, 9, 58, 0), false},
		{timeDate(2024, 6, 15, 9, 59, 0), true},
		{timeDate(2024, 6, 15, 11, 1, 0), true},
		{timeDate(2024, 6, 15, 11, 2, 0), false},
	}

	for _, tt := range bufferTests {
		if got := rules.IsTimeDisabled(tt.candidate, busy); got != tt.out {
			t.Errorf("IsTimeDisabled(%s) = %v, want %v", tt.candidate, got, tt.out)
		}
	}
}

func TestSlotRules_IsDateDisabled(t *testing.T) {
	rules := testSlotRules()

	if !rules.IsDateDisabled(timeDate(2024, 6, 14, 10, 0, 0)) {
		t.Errorf("yesterday should be disabled")
	}

	if rules.IsDateDisabled(timeDate(2024, 6, 15, 0, 0, 0)) {
		t.Errorf("today should be enabled")
	}
}

func TestSlotRules_EarliestStart(t *testing.T) {
	rules := testSlotRules()

	want := timeDate(2024, 6, 15, 12, 5, 0)
	if got := rules.EarliestStart(); !got.Equal(want) {
		t.Errorf("EarliestStart() = %s, want %s", got, want)
	}
}
