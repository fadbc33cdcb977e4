package calendar

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

// ICalOptions selects what goes into an exported calendar.
type ICalOptions struct {
	From                time.Time
	To                  time.Time
	IncludeBookings     bool
	IncludeEvents       bool
	IncludeAvailability bool
}

// ExportICal serializes one loctician's calendar over [From, To] (inclusive
// dates) as a VCALENDAR document. Bookings map to CONFIRMED or TENTATIVE
// entries; recurring events are written one VEVENT per occurrence with a
// synthetic per-occurrence uid.
func (s *Service) ExportICal(ctx context.Context, locticianID uuid.UUID, opts ICalOptions) (string, error) {
	loctician, err := s.locticians.GetByID(ctx, locticianID)
	if err != nil {
		return "", err
	}

	from := timeutil.DateOnly(opts.From, s.loc)
	to := timeutil.DateOnly(opts.To, s.loc)
	rangeStart := from
	rangeEnd := to.AddDate(0, 0, 1)

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//strandloc//booking-calendar//EN")
	cal.SetXWRCalName(loctician.Name)
	cal.SetXWRTimezone(s.loc.String())

	now := s.clock().UTC()

	if opts.IncludeBookings {
		bookings, err := s.bookings.ListRange(ctx, locticianID, rangeStart, rangeEnd)
		if err != nil {
			return "", fmt.Errorf("list bookings: %w", err)
		}
		for _, b := range bookings {
			if b.Status == BookingCancelled || b.Status == BookingNoShow {
				continue
			}
			e := cal.AddEvent(fmt.Sprintf("booking-%s", b.ID))
			e.SetDtStampTime(now)
			e.SetStartAt(b.Start)
			e.SetEndAt(b.End)
			e.SetSummary(bookingSummary(b))
			e.SetStatus(bookingICalStatus(b.Status))
		}
	}

	if opts.IncludeEvents {
		events, err := s.events.Candidates(ctx, locticianID, rangeStart, rangeEnd, nil)
		if err != nil {
			return "", fmt.Errorf("list events: %w", err)
		}
		for _, ev := range events {
			for i, occ := range s.expander.Expand(ev, from, to) {
				if !timeutil.Overlaps(occ.Start, occ.End, rangeStart, rangeEnd) {
					continue
				}
				uid := fmt.Sprintf("event-%s", ev.ID)
				if ev.IsRecurring {
					uid = fmt.Sprintf("event-%s-%d", ev.ID, i)
				}
				e := cal.AddEvent(uid)
				e.SetDtStampTime(now)
				e.SetStartAt(occ.Start)
				e.SetEndAt(occ.End)
				e.SetSummary(ev.Title)
				if ev.Description != nil {
					e.SetDescription(*ev.Description)
				}
				if !ev.Public {
					e.SetProperty(ics.ComponentPropertyClass, "PRIVATE")
				}
			}
		}
	}

	if opts.IncludeAvailability {
		for _, day := range timeutil.DatesBetween(from, to, s.loc) {
			win, err := s.engine.resolveDayWindow(ctx, locticianID, day)
			if err != nil {
				return "", err
			}
			if win == nil {
				continue
			}
			e := cal.AddEvent(fmt.Sprintf("availability-%s-%s", locticianID, day.Format("2006-01-02")))
			e.SetDtStampTime(now)
			e.SetStartAt(win.Start.At(day, s.loc))
			e.SetEndAt(win.End.At(day, s.loc))
			e.SetSummary(fmt.Sprintf("Working hours %s-%s", win.Start, win.End))
			e.SetTimeTransparency(ics.TransparencyTransparent)
		}
	}

	return cal.Serialize(), nil
}

func bookingSummary(b *Booking) string {
	if b.ServiceName != "" {
		return fmt.Sprintf("%s (%s)", b.ServiceName, b.Number)
	}
	return "Booking " + b.Number
}

func bookingICalStatus(s BookingStatus) ics.ObjectStatus {
	if s == BookingPending {
		return ics.ObjectStatusTentative
	}
	return ics.ObjectStatusConfirmed
}
