package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

var ErrInvalidViewType = errors.New("view must be one of day, week, month, agenda")

// agendaDays is how far forward the agenda view looks.
const agendaDays = 30

var bookingColors = map[BookingStatus]string{
	BookingPending:    "#f5a623",
	BookingConfirmed:  "#2e7d32",
	BookingInProgress: "#1565c0",
	BookingCompleted:  "#9e9e9e",
	BookingCancelled:  "#bdbdbd",
	BookingNoShow:     "#bdbdbd",
}

var eventColors = map[EventType]string{
	EventBreak:     "#90a4ae",
	EventMeeting:   "#5c6bc0",
	EventVacation:  "#26a69a",
	EventSickLeave: "#ef5350",
	EventTraining:  "#ab47bc",
	EventPersonal:  "#8d6e63",
}

// GetScheduleView assembles the merged, time-ordered read model of one
// loctician's bookings and event occurrences for the window implied by the
// view type, plus the per-day working hours resolved override-first. It
// never mutates state.
func (s *Service) GetScheduleView(ctx context.Context, locticianID uuid.UUID, view ViewType, ref time.Time) (*ScheduleView, error) {
	if !view.Valid() {
		return nil, ErrInvalidViewType
	}

	from, to := s.viewWindow(view, ref)
	// Half-open time range covering every day of the window.
	rangeStart := from
	rangeEnd := to.AddDate(0, 0, 1)

	items := []ScheduleItem{}

	bookings, err := s.bookings.ListRange(ctx, locticianID, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	for _, b := range bookings {
		items = append(items, bookingItem(b))
	}

	events, err := s.events.Candidates(ctx, locticianID, rangeStart, rangeEnd, nil)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	for _, ev := range events {
		for i, occ := range s.expander.Expand(ev, from, to) {
			if !timeutil.Overlaps(occ.Start, occ.End, rangeStart, rangeEnd) {
				continue
			}
			items = append(items, eventItem(ev, occ, i))
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		return items[i].Title < items[j].Title
	})

	hours, err := s.dayHours(ctx, locticianID, from, to)
	if err != nil {
		return nil, err
	}

	return &ScheduleView{
		LocticianID: locticianID,
		View:        view,
		Start:       from,
		End:         to,
		Items:       items,
		Hours:       hours,
	}, nil
}

func (s *Service) viewWindow(view ViewType, ref time.Time) (time.Time, time.Time) {
	day := timeutil.DateOnly(ref, s.loc)
	switch view {
	case ViewWeek:
		return timeutil.WeekWindow(day, s.loc)
	case ViewMonth:
		return timeutil.MonthWindow(day, s.loc)
	case ViewAgenda:
		return day, day.AddDate(0, 0, agendaDays-1)
	default:
		return day, day
	}
}

func bookingItem(b *Booking) ScheduleItem {
	title := b.ServiceName
	if title == "" {
		title = "Booking " + b.Number
	}
	return ScheduleItem{
		ID:       "booking-" + b.ID.String(),
		Title:    title,
		Start:    b.Start,
		End:      b.End,
		Kind:     "booking",
		Status:   string(b.Status),
		Color:    bookingColors[b.Status],
		Editable: false,
		Metadata: map[string]any{
			"booking_number": b.Number,
			"customer_id":    b.CustomerID.String(),
			"service_id":     b.ServiceID.String(),
		},
	}
}

func eventItem(ev *CalendarEvent, occ Occurrence, index int) ScheduleItem {
	id := "event-" + ev.ID.String()
	if ev.IsRecurring {
		id = fmt.Sprintf("event-%s-%d", ev.ID, index)
	}
	meta := map[string]any{
		"event_type": string(ev.Type),
		"public":     ev.Public,
		"recurring":  ev.IsRecurring,
	}
	return ScheduleItem{
		ID:       id,
		Title:    ev.Title,
		Start:    occ.Start,
		End:      occ.End,
		Kind:     "event",
		Status:   string(ev.Type),
		Color:    eventColors[ev.Type],
		Editable: true,
		Metadata: meta,
	}
}

func (s *Service) dayHours(ctx context.Context, locticianID uuid.UUID, from, to time.Time) (map[string]DayHours, error) {
	hours := make(map[string]DayHours)

	for _, day := range timeutil.DatesBetween(from, to, s.loc) {
		key := day.Format("2006-01-02")

		ovr, err := s.engine.OverrideForDate(ctx, locticianID, day)
		if err != nil {
			return nil, err
		}
		if ovr != nil {
			dh := DayHours{Date: key, Open: ovr.IsAvailable, Source: "override"}
			if ovr.IsAvailable && ovr.StartTime != nil && ovr.EndTime != nil {
				start, end := ovr.StartTime.String(), ovr.EndTime.String()
				dh.Start, dh.End = &start, &end
			}
			hours[key] = dh
			continue
		}

		win, err := s.engine.BaseAvailability(ctx, locticianID, day)
		if err != nil {
			return nil, err
		}
		if win == nil {
			hours[key] = DayHours{Date: key, Open: false, Source: "none"}
			continue
		}
		start, end := win.Start.String(), win.End.String()
		hours[key] = DayHours{Date: key, Open: true, Start: &start, End: &end, Source: "pattern"}
	}

	return hours, nil
}
