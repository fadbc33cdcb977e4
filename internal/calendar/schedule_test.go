package calendar

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

func TestGetScheduleViewInvalidView(t *testing.T) {
	h := newHarness(t, 0)
	_, err := h.svc.GetScheduleView(context.Background(), h.locticianID, "fortnight", h.date(2024, 1, 10))
	assert.ErrorIs(t, err, ErrInvalidViewType)
}

func TestGetScheduleViewWeek(t *testing.T) {
	h := newHarness(t, 0)
	h.addWeekdayPattern(3, "09:00", "17:00")

	booking := h.addBooking(h.at(2024, 1, 10, 10, 0), h.at(2024, 1, 10, 11, 0), BookingConfirmed)

	h.events.events = append(h.events.events, &CalendarEvent{
		ID:          uuid.New(),
		LocticianID: h.locticianID,
		Title:       "Lunch break",
		Type:        EventBreak,
		Start:       h.at(2023, 1, 2, 12, 0),
		End:         h.at(2023, 1, 2, 12, 30),
		IsRecurring: true,
		Recurrence:  &RecurrenceRule{Frequency: FreqWeekly, ByDay: []int{1, 2, 3, 4, 5}},
	})

	// Any day of the week resolves to the same Monday-anchored window.
	view, err := h.svc.GetScheduleView(context.Background(), h.locticianID, ViewWeek, h.date(2024, 1, 10))
	require.NoError(t, err)

	assert.Equal(t, h.date(2024, 1, 8), view.Start)
	assert.Equal(t, h.date(2024, 1, 14), view.End)

	// One booking plus five weekday lunch occurrences, time-ordered.
	require.Len(t, view.Items, 6)
	for i := 1; i < len(view.Items); i++ {
		assert.False(t, view.Items[i].Start.Before(view.Items[i-1].Start), "items must be sorted by start")
	}

	var bookings, events int
	for _, item := range view.Items {
		switch item.Kind {
		case "booking":
			bookings++
			assert.Equal(t, "booking-"+booking.ID.String(), item.ID)
			assert.Equal(t, "Retwist", item.Title)
			assert.False(t, item.Editable)
			assert.Equal(t, booking.Number, item.Metadata["booking_number"])
		case "event":
			events++
			assert.True(t, item.Editable)
		}
	}
	assert.Equal(t, 1, bookings)
	assert.Equal(t, 5, events)
}

func TestGetScheduleViewDayHours(t *testing.T) {
	h := newHarness(t, 0)
	h.addWeekdayPattern(3, "09:00", "17:00")

	start := timeutil.MustTimeOfDay("10:00")
	end := timeutil.MustTimeOfDay("13:00")
	h.overrides.overrides = append(h.overrides.overrides, &AvailabilityOverride{
		ID:          uuid.New(),
		LocticianID: h.locticianID,
		Date:        h.date(2024, 1, 10),
		IsAvailable: true,
		StartTime:   &start,
		EndTime:     &end,
	})

	view, err := h.svc.GetScheduleView(context.Background(), h.locticianID, ViewWeek, h.date(2024, 1, 10))
	require.NoError(t, err)
	require.Len(t, view.Hours, 7)

	wednesday := view.Hours["2024-01-10"]
	assert.True(t, wednesday.Open)
	assert.Equal(t, "override", wednesday.Source)
	require.NotNil(t, wednesday.Start)
	assert.Equal(t, "10:00", *wednesday.Start)

	sunday := view.Hours["2024-01-14"]
	assert.False(t, sunday.Open)
	assert.Equal(t, "none", sunday.Source)
}

func TestGetScheduleViewDay(t *testing.T) {
	h := newHarness(t, 0)
	h.addBooking(h.at(2024, 1, 10, 10, 0), h.at(2024, 1, 10, 11, 0), BookingConfirmed)
	h.addBooking(h.at(2024, 1, 11, 10, 0), h.at(2024, 1, 11, 11, 0), BookingConfirmed)

	view, err := h.svc.GetScheduleView(context.Background(), h.locticianID, ViewDay, h.date(2024, 1, 10))
	require.NoError(t, err)

	assert.Equal(t, view.Start, view.End)
	require.Len(t, view.Items, 1, "next day's booking is outside the window")
}

func TestGetScheduleViewRecurringItemIDsAreStable(t *testing.T) {
	h := newHarness(t, 0)

	evID := uuid.New()
	h.events.events = append(h.events.events, &CalendarEvent{
		ID:          evID,
		LocticianID: h.locticianID,
		Title:       "Lunch break",
		Type:        EventBreak,
		Start:       h.at(2024, 1, 8, 12, 0),
		End:         h.at(2024, 1, 8, 12, 30),
		IsRecurring: true,
		Recurrence:  &RecurrenceRule{Frequency: FreqDaily},
	})

	view, err := h.svc.GetScheduleView(context.Background(), h.locticianID, ViewWeek, h.date(2024, 1, 10))
	require.NoError(t, err)

	require.Len(t, view.Items, 7)
	seen := make(map[string]bool)
	for _, item := range view.Items {
		assert.Contains(t, item.ID, "event-"+evID.String())
		assert.False(t, seen[item.ID], "occurrence ids must be unique")
		seen[item.ID] = true
	}
}
