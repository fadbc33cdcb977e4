package calendar

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expandEvent(t *testing.T, ev *CalendarEvent, from, to time.Time) []Occurrence {
	t.Helper()
	return NewRecurrenceExpander(zerolog.Nop()).Expand(ev, from, to)
}

func utc(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func TestExpandNonRecurring(t *testing.T) {
	ev := &CalendarEvent{
		ID:    uuid.New(),
		Title: "Supplier meeting",
		Start: utc(2024, 1, 10, 14, 0),
		End:   utc(2024, 1, 10, 15, 0),
	}

	occs := expandEvent(t, ev, utc(2024, 2, 1, 0, 0), utc(2024, 2, 28, 0, 0))

	require.Len(t, occs, 1)
	assert.Equal(t, ev.Start, occs[0].Start)
	assert.Equal(t, ev.End, occs[0].End)
}

func TestExpandWeeklyWithCount(t *testing.T) {
	count := 4
	ev := &CalendarEvent{
		ID:          uuid.New(),
		Title:       "Team standup",
		Start:       utc(2024, 1, 3, 9, 0), // Wednesday
		End:         utc(2024, 1, 3, 9, 30),
		IsRecurring: true,
		Recurrence:  &RecurrenceRule{Frequency: FreqWeekly, Count: &count},
	}

	occs := expandEvent(t, ev, utc(2024, 1, 1, 0, 0), utc(2024, 1, 31, 0, 0))

	require.Len(t, occs, 4)
	assert.Equal(t, utc(2024, 1, 3, 9, 0), occs[0].Start)
	assert.Equal(t, utc(2024, 1, 10, 9, 0), occs[1].Start)
	assert.Equal(t, utc(2024, 1, 17, 9, 0), occs[2].Start)
	assert.Equal(t, utc(2024, 1, 24, 9, 0), occs[3].Start)
	for _, occ := range occs {
		assert.Equal(t, 30*time.Minute, occ.End.Sub(occ.Start))
	}
}

func TestExpandCountBoundsTotalStream(t *testing.T) {
	// Count limits the whole recurrence, not the window: a count of 2 on a
	// daily rule yields nothing in a window past the second occurrence.
	count := 2
	ev := &CalendarEvent{
		ID:          uuid.New(),
		Title:       "Onboarding",
		Start:       utc(2024, 1, 1, 10, 0),
		End:         utc(2024, 1, 1, 11, 0),
		IsRecurring: true,
		Recurrence:  &RecurrenceRule{Frequency: FreqDaily, Count: &count},
	}

	occs := expandEvent(t, ev, utc(2024, 1, 10, 0, 0), utc(2024, 1, 20, 0, 0))
	assert.Empty(t, occs)
}

func TestExpandDailyWithUntil(t *testing.T) {
	until := utc(2024, 1, 5, 23, 59)
	ev := &CalendarEvent{
		ID:          uuid.New(),
		Title:       "Morning prep",
		Start:       utc(2024, 1, 1, 8, 0),
		End:         utc(2024, 1, 1, 8, 30),
		IsRecurring: true,
		Recurrence:  &RecurrenceRule{Frequency: FreqDaily, Until: &until},
	}

	occs := expandEvent(t, ev, utc(2024, 1, 1, 0, 0), utc(2024, 1, 31, 0, 0))
	assert.Len(t, occs, 5)
}

func TestExpandWeeklyByDay(t *testing.T) {
	ev := &CalendarEvent{
		ID:          uuid.New(),
		Title:       "Lunch break",
		Start:       utc(2024, 1, 2, 12, 0), // Tuesday
		End:         utc(2024, 1, 2, 12, 30),
		IsRecurring: true,
		Recurrence: &RecurrenceRule{
			Frequency: FreqWeekly,
			ByDay:     []int{2, 4}, // Tuesday and Thursday
		},
	}

	occs := expandEvent(t, ev, utc(2024, 1, 1, 0, 0), utc(2024, 1, 14, 0, 0))

	require.Len(t, occs, 4)
	assert.Equal(t, time.Tuesday, occs[0].Start.Weekday())
	assert.Equal(t, time.Thursday, occs[1].Start.Weekday())
	assert.Equal(t, time.Tuesday, occs[2].Start.Weekday())
	assert.Equal(t, time.Thursday, occs[3].Start.Weekday())
}

func TestExpandWindowIsInclusive(t *testing.T) {
	ev := &CalendarEvent{
		ID:          uuid.New(),
		Title:       "Closing routine",
		Start:       utc(2024, 1, 1, 17, 30),
		End:         utc(2024, 1, 1, 18, 0),
		IsRecurring: true,
		Recurrence:  &RecurrenceRule{Frequency: FreqDaily},
	}

	// An occurrence late on the window's last day must still be produced.
	occs := expandEvent(t, ev, utc(2024, 1, 5, 0, 0), utc(2024, 1, 5, 0, 0))

	require.Len(t, occs, 1)
	assert.Equal(t, utc(2024, 1, 5, 17, 30), occs[0].Start)
}

func TestExpandMalformedRuleFallsBackToCanonical(t *testing.T) {
	cases := []struct {
		name string
		rule *RecurrenceRule
	}{
		{"unknown frequency", &RecurrenceRule{Frequency: "fortnightly"}},
		{"by_day out of range", &RecurrenceRule{Frequency: FreqWeekly, ByDay: []int{7}}},
		{"by_month out of range", &RecurrenceRule{Frequency: FreqYearly, ByMonth: []int{13}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := &CalendarEvent{
				ID:          uuid.New(),
				Title:       "Broken",
				Start:       utc(2024, 1, 10, 9, 0),
				End:         utc(2024, 1, 10, 10, 0),
				IsRecurring: true,
				Recurrence:  tc.rule,
			}

			occs := expandEvent(t, ev, utc(2024, 1, 1, 0, 0), utc(2024, 1, 31, 0, 0))

			require.Len(t, occs, 1)
			assert.Equal(t, ev.Start, occs[0].Start)
		})
	}
}

func TestExpandMonthlyByMonthDay(t *testing.T) {
	ev := &CalendarEvent{
		ID:          uuid.New(),
		Title:       "Inventory",
		Start:       utc(2024, 1, 1, 7, 0),
		End:         utc(2024, 1, 1, 8, 0),
		IsRecurring: true,
		Recurrence: &RecurrenceRule{
			Frequency:  FreqMonthly,
			ByMonthDay: []int{1},
		},
	}

	occs := expandEvent(t, ev, utc(2024, 1, 1, 0, 0), utc(2024, 3, 31, 0, 0))

	require.Len(t, occs, 3)
	for _, occ := range occs {
		assert.Equal(t, 1, occ.Start.Day())
	}
}
