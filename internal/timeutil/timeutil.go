package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// TimeOfDay is a clock time within a day, stored as minutes since midnight.
// It deliberately carries no date or timezone; use At to anchor it.
type TimeOfDay int

var ErrBadTimeOfDay = errors.New("time of day must be HH:MM between 00:00 and 23:59")

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeOfDay, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for constants in tests and fixtures.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// At anchors the clock time on the given calendar date in loc.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// AddMinutes returns the clock time shifted by n minutes. It does not wrap.
func (t TimeOfDay) AddMinutes(n int) TimeOfDay { return t + TimeOfDay(n) }

// DayOfWeek returns the weekday of t using the stored convention
// 0=Sunday .. 6=Saturday. Kept as a named function so the convention has
// exactly one home; Go's time.Weekday already counts Sunday as zero, but
// callers must not rely on that coincidence inline.
func DayOfWeek(t time.Time) int {
	return int(t.Weekday())
}

// DateOnly truncates t to midnight of its calendar day in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDate reports whether a and b fall on the same calendar day in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	return DateOnly(a, loc).Equal(DateOnly(b, loc))
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Adjacent intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// WeekWindow returns the Monday and Sunday (both at midnight in loc) of the
// ISO week containing date.
func WeekWindow(date time.Time, loc *time.Location) (time.Time, time.Time) {
	d := DateOnly(date, loc)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	start := d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// MonthWindow returns the first and last day (midnight in loc) of the
// calendar month containing date.
func MonthWindow(date time.Time, loc *time.Location) (time.Time, time.Time) {
	d := DateOnly(date, loc)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, -1)
}

// DatesBetween enumerates the calendar days from start through end inclusive.
func DatesBetween(start, end time.Time, loc *time.Location) []time.Time {
	from := DateOnly(start, loc)
	to := DateOnly(end, loc)
	if to.Before(from) {
		return nil
	}
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
