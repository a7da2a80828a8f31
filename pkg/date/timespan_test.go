package date

import (
	"reflect"
	"testing"
	"time"
)

func timeDate(year int, month time.Month, day int, hour int, min int, seconds int) time.Time {
	loc, _ := time.LoadLocation("Local")
	return time.Date(year, month, day, hour, min, seconds, 0, loc)
}

func TestOverlaps(t *testing.T) {
	var overlapTests = []struct {
		name string
		a    Timespan
		b    Timespan
		out  bool
	}{
		{
			"touching endpoints do not overlap",
			Timespan{Start: timeDate(2024, 1, 1, 10, 0, 0), End: timeDate(2024, 1, 1, 11, 0, 0)},
			Timespan{Start: timeDate(2024, 1, 1, 11, 0, 0), End: timeDate(2024, 1, 1, 12, 0, 0)},
			false,
		},
		{
			"one minute overlap",
			Timespan{Start: timeDate(2024, 1, 1, 10, 0, 0), End: timeDate(2024, 1, 1, 11, 0, 0)},
			Timespan{Start: timeDate(2024, 1, 1, 10, 59, 0), End: timeDate(2024, 1, 1, 11, 30, 0)},
			true,
		},
		{
			"contained interval",
			Timespan{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 17, 0, 0)},
			Timespan{Start: timeDate(2024, 1, 1, 12, 0, 0), End: timeDate(2024, 1, 1, 13, 0, 0)},
			true,
		},
		{
			"disjoint intervals",
			Timespan{Start: timeDate(2024, 1, 1, 8, 0, 0), End: timeDate(2024, 1, 1, 9, 0, 0)},
			Timespan{Start: timeDate(2024, 1, 1, 14, 0, 0), End: timeDate(2024, 1, 1, 15, 0, 0)},
			false,
		},
		{
			"identical intervals",
			Timespan{Start: timeDate(2024, 1, 1, 8, 0, 0), End: timeDate(2024, 1, 1, 9, 0, 0)},
			Timespan{Start: timeDate(2024, 1, 1, 8, 0, 0), End: timeDate(2024, 1, 1, 9, 0, 0)},
			true,
		},
	}

	for _, tt := range overlapTests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(tt.a.Start, tt.a.End, tt.b.Start, tt.b.End)
			if got != tt.out {
				t.Errorf("Overlaps() = %v, want %v", got, tt.out)
			}

			// Symmetry has to hold for every pair
			mirrored := Overlaps(tt.b.Start, tt.b.End, tt.a.Start, tt.a.End)
			if mirrored != got {
				t.Errorf("Overlaps() is not symmetric: %v != %v", got, mirrored)
			}
		})
	}
}

func TestTimespan_IntersectsWith(t *testing.T) {
	a := Timespan{Start: timeDate(2024, 6, 1, 10, 0, 0), End: timeDate(2024, 6, 1, 12, 0, 0)}
	b := Timespan{Start: timeDate(2024, 6, 1, 11, 0, 0), End: timeDate(2024, 6, 1, 13, 0, 0)}
	c := Timespan{Start: timeDate(2024, 6, 1, 12, 0, 0), End: timeDate(2024, 6, 1, 13, 0, 0)}

	if !a.IntersectsWith(b) {
		t.Errorf("expected %s to intersect with %s", a.String(), b.String())
	}

	if a.IntersectsWith(c) {
		t.Errorf("expected %s not to intersect with %s", a.String(), c.String())
	}
}

func TestTimespan_Pad(t *testing.T) {
	span := Timespan{Start: timeDate(2024, 1, 1, 10, 0, 0), End: timeDate(2024, 1, 1, 11, 0, 0)}
	padded := span.Pad(time.Minute)

	want := Timespan{Start: timeDate(2024, 1, 1, 9, 59, 0), End: timeDate(2024, 1, 1, 11, 1, 0)}
	if !padded.Start.Equal(want.Start) || !padded.End.Equal(want.End) {
		t.Errorf("Pad() = %s, want %s", padded.String(), want.String())
	}
}

func TestTimespan_ContainsTimeInclusive(t *testing.T) {
	span := Timespan{Start: timeDate(2024, 1, 1, 9, 59, 0), End: timeDate(2024, 1, 1, 11, 1, 0)}

	if !span.ContainsTimeInclusive(timeDate(2024, 1, 1, 10, 59, 30)) {
		t.Errorf("expected 10:59:30 to be contained")
	}

	if !span.ContainsTimeInclusive(timeDate(2024, 1, 1, 9, 59, 0)) {
		t.Errorf("expected start boundary to be contained")
	}

	if span.ContainsTimeInclusive(timeDate(2024, 1, 1, 9, 58, 0)) {
		t.Errorf("expected 09:58:00 not to be contained")
	}
}

func TestMergeTimespans(t *testing.T) {
	var mergeTests = []struct {
		name string
		in   []Timespan
		out  []Timespan
	}{
		{
			"overlapping spans merge",
			[]Timespan{
				{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)},
				{Start: timeDate(2024, 1, 1, 9, 30, 0), End: timeDate(2024, 1, 1, 11, 0, 0)},
			},
			[]Timespan{
				{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 11, 0, 0)},
			},
		},
		{
			"disjoint spans stay apart and get sorted",
			[]Timespan{
				{Start: timeDate(2024, 1, 1, 14, 0, 0), End: timeDate(2024, 1, 1, 15, 0, 0)},
				{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)},
			},
			[]Timespan{
				{Start: timeDate(2024, 1, 1, 9, 0, 0), End: timeDate(2024, 1, 1, 10, 0, 0)},
				{Start: timeDate(2024, 1, 1, 14, 0, 0), End: timeDate(2024, 1, 1, 15, 0, 0)},
			},
		},
		{
			"empty input",
			nil,
			nil,
		},
	}

	for _, tt := range mergeTests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTimespans(tt.in)
			if !reflect.DeepEqual(got, tt.out) {
				t.Errorf("MergeTimespans() = %v, want %v", got, tt.out)
			}
		})
	}
}

func TestClockWindow_ContainsClock(t *testing.T) {
	window := ClockWindow{StartHour: 8, EndHour: 20}

	var clockTests = []struct {
		point time.Time
		out   bool
	}{
		{timeDate(2024, 1, 1, 7, 59, 0), false},
		{timeDate(2024, 1, 1, 8, 0, 0), true},
		{timeDate(2024, 1, 1, 19, 59, 0), true},
		{timeDate(2024, 1, 1, 20, 0, 0), false},
	}

	for _, tt := range clockTests {
		if got := window.ContainsClock(tt.point); got != tt.out {
			t.Errorf("ContainsClock(%s) = %v, want %v", tt.point, got, tt.out)
		}
	}
}

func TestIsDateBeforeToday(t *testing.T) {
	now := timeDate(2024, 6, 15, 14, 30, 0)

	if !IsDateBeforeToday(timeDate(2024, 6, 14, 23, 59, 0), now) {
		t.Errorf("yesterday should be before today")
	}

	if IsDateBeforeToday(timeDate(2024, 6, 15, 0, 0, 0), now) {
		t.Errorf("today at midnight should not be before today")
	}

	if IsDateBeforeToday(timeDate(2024, 6, 16, 0, 0, 0), now) {
		t.Errorf("tomorrow should not be before today")
	}
}
