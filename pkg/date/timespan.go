package date

import (
	"fmt"
	"sort"
	"time"
)

// TimeBeforeOrEquals returns whether t1 is before or equal t2
func TimeBeforeOrEquals(t1 time.Time, t2 time.Time) bool {
	ts := t1.UnixNano()
	us := t2.UnixNano()
	return ts <= us
}

// TimeAfterOrEquals returns whether t1 is after or equal t2
func TimeAfterOrEquals(t1 time.Time, t2 time.Time) bool {
	ts := t1.UnixNano()
	us := t2.UnixNano()
	return ts >= us
}

// Overlaps reports whether the half open intervals [startA, endA) and [startB, endB) overlap.
// Touching endpoints do not overlap. Inverted inputs are not rejected here, ordering is the
// caller's responsibility.
func Overlaps(startA time.Time, endA time.Time, startB time.Time, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}

// Timespan is a simple timespan between two times/dates
type Timespan struct {
	Start time.Time `json:"start" bson:"start" validate:"required"`
	End   time.Time `json:"end" bson:"end"`
}

// Duration simply gets the duration of a Timespan
func (t *Timespan) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// IsStartBeforeEnd checks if start is strictly earlier than end
func (t *Timespan) IsStartBeforeEnd() bool {
	return t.Start.Before(t.End)
}

// String prints a timespan string
func (t *Timespan) String() string {
	return fmt.Sprintf("%s - %s", t.Start, t.End)
}

// In changes the location on a Timespan
func (t *Timespan) In(location *time.Location) Timespan {
	t.Start = t.Start.In(location)
	t.End = t.End.In(location)

	return *t
}

// IntersectsWith checks if one timespan intersects with another
func (t *Timespan) IntersectsWith(timespan Timespan) bool {
	return Overlaps(t.Start, t.End, timespan.Start, timespan.End)
}

// Contains checks if timespan t contains another Timespan timespan
func (t *Timespan) Contains(timespan Timespan) bool {
	return TimeAfterOrEquals(timespan.Start, t.Start) &&
		TimeBeforeOrEquals(timespan.End, t.End)
}

// Pad grows a Timespan by padding on both sides
func (t *Timespan) Pad(padding time.Duration) Timespan {
	return Timespan{
		Start: t.Start.Add(padding * -1),
		End:   t.End.Add(padding),
	}
}

// ContainsTimeInclusive checks if a point in time lies within [Start, End], both ends inclusive
func (t *Timespan) ContainsTimeInclusive(point time.Time) bool {
	return !point.Before(t.Start) && !point.After(t.End)
}

func min(a, b time.Time) time.Time {
	if a.Unix() < b.Unix() {
		return a
	}
	return b
}

func max(a, b time.Time) time.Time {
	if a.Unix() > b.Unix() {
		return a
	}
	return b
}

// MergeTimespans merges Timespan structs together in case they overlap, they don't have to be presorted
func MergeTimespans(timespans []Timespan) []Timespan {
	if len(timespans) == 0 {
		return nil
	}

	sort.Slice(timespans, func(i, j int) bool {
		return timespans[i].Start.Before(timespans[j].Start)
	})

	index := 0

	for i := 1; i < len(timespans); i++ {
		if timespans[index].End.Unix() >= timespans[i].Start.Unix() {
			timespans[index].End = max(timespans[index].End, timespans[i].End)
			timespans[index].Start = min(timespans[index].Start, timespans[i].Start)
		} else {
			index++
			timespans[index] = timespans[i]
		}
	}

	var mergedTimespans []Timespan
	for i := 0; i <= index; i++ {
		mergedTimespans = append(mergedTimespans, timespans[i])
	}

	return mergedTimespans
}

// ClockWindow is a window of allowed hours of the day, half open [StartHour, EndHour)
type ClockWindow struct {
	StartHour int
	EndHour   int
}

// ContainsClock checks if the hour of day of a time lies inside the window
func (w ClockWindow) ContainsClock(point time.Time) bool {
	hour := point.Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

// IsDateBeforeToday checks a calendar date against today, ignoring the time of day
func IsDateBeforeToday(point time.Time, now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return point.Before(today)
}
