package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

var ErrInvalidSlotParams = errors.New("duration and interval must be positive")

// Engine answers "what is available" and "does this window conflict" for a
// loctician. All methods are read-only.
type Engine struct {
	patterns  PatternRepository
	overrides OverrideRepository
	events    EventRepository
	bookings  BookingRepository
	expander  *RecurrenceExpander

	loc           *time.Location
	bufferMinutes int
	log           zerolog.Logger
}

func NewEngine(
	patterns PatternRepository,
	overrides OverrideRepository,
	events EventRepository,
	bookings BookingRepository,
	expander *RecurrenceExpander,
	loc *time.Location,
	bufferMinutes int,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		patterns:      patterns,
		overrides:     overrides,
		events:        events,
		bookings:      bookings,
		expander:      expander,
		loc:           loc,
		bufferMinutes: bufferMinutes,
		log:           log,
	}
}

// BaseAvailability resolves the pattern-derived working window for one date.
// Returns nil when no active pattern covers the date.
func (e *Engine) BaseAvailability(ctx context.Context, locticianID uuid.UUID, date time.Time) (*DayWindow, error) {
	day := timeutil.DateOnly(date, e.loc)
	pats, err := e.patterns.ActiveForDay(ctx, locticianID, timeutil.DayOfWeek(day), day)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	for _, p := range pats {
		if p.Covers(day) {
			return &DayWindow{Start: p.StartTime, End: p.EndTime}, nil
		}
	}
	return nil, nil
}

// OverrideForDate looks up the single override for a date, or nil.
func (e *Engine) OverrideForDate(ctx context.Context, locticianID uuid.UUID, date time.Time) (*AvailabilityOverride, error) {
	day := timeutil.DateOnly(date, e.loc)
	o, err := e.overrides.GetForDate(ctx, locticianID, day)
	if err != nil {
		if errors.Is(err, ErrOverrideNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load override: %w", err)
	}
	return o, nil
}

// ConflictingBookings returns blocking-status bookings strictly overlapping
// [start, end).
func (e *Engine) ConflictingBookings(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error) {
	return e.bookings.Overlapping(ctx, locticianID, start, end, excludeID)
}

// ConflictingEvents returns events with at least one occurrence strictly
// overlapping [start, end). Recurring events are expanded within the window's
// dates before overlap-testing.
func (e *Engine) ConflictingEvents(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*CalendarEvent, error) {
	candidates, err := e.events.Candidates(ctx, locticianID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	windowStart := timeutil.DateOnly(start, e.loc)
	windowEnd := timeutil.DateOnly(end, e.loc)

	var hits []*CalendarEvent
	for _, ev := range candidates {
		for _, occ := range e.expander.Expand(ev, windowStart, windowEnd) {
			if timeutil.Overlaps(occ.Start, occ.End, start, end) {
				hits = append(hits, ev)
				break
			}
		}
	}
	return hits, nil
}

// CheckConflicts aggregates booking conflicts, event conflicts and
// availability issues for [start, end). Evaluation order: bookings, events,
// override-else-pattern hours, public holiday.
func (e *Engine) CheckConflicts(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeBooking, excludeEvent *uuid.UUID) (*ConflictResult, error) {
	res := &ConflictResult{}

	bookings, err := e.ConflictingBookings(ctx, locticianID, start, end, excludeBooking)
	if err != nil {
		return nil, fmt.Errorf("booking conflicts: %w", err)
	}
	for _, b := range bookings {
		res.Conflicts = append(res.Conflicts, fmt.Sprintf(
			"booking %s (%s to %s) overlaps the requested time",
			b.Number, b.Start.In(e.loc).Format("15:04"), b.End.In(e.loc).Format("15:04"),
		))
		res.BookingIDs = append(res.BookingIDs, b.ID)
	}

	events, err := e.ConflictingEvents(ctx, locticianID, start, end, excludeEvent)
	if err != nil {
		return nil, fmt.Errorf("event conflicts: %w", err)
	}
	for _, ev := range events {
		res.Conflicts = append(res.Conflicts, fmt.Sprintf("event %q overlaps the requested time", ev.Title))
		res.EventIDs = append(res.EventIDs, ev.ID)
	}

	if err := e.appendAvailabilityIssues(ctx, locticianID, start, end, res); err != nil {
		return nil, err
	}

	res.HasConflicts = len(res.Conflicts) > 0 || len(res.AvailabilityIssues) > 0
	return res, nil
}

func (e *Engine) appendAvailabilityIssues(ctx context.Context, locticianID uuid.UUID, start, end time.Time, res *ConflictResult) error {
	date := timeutil.DateOnly(start, e.loc)
	dateStr := date.Format("2006-01-02")

	ovr, err := e.OverrideForDate(ctx, locticianID, date)
	if err != nil {
		return err
	}

	switch {
	case ovr != nil && !ovr.IsAvailable:
		reason := "closed"
		if ovr.Reason != nil && *ovr.Reason != "" {
			reason = *ovr.Reason
		}
		res.AvailabilityIssues = append(res.AvailabilityIssues,
			fmt.Sprintf("not available on %s: %s", dateStr, reason))

	case ovr != nil:
		if outside := e.outsideWindow(start, end, date, *ovr.StartTime, *ovr.EndTime); outside {
			res.AvailabilityIssues = append(res.AvailabilityIssues,
				fmt.Sprintf("requested time is outside override hours %s-%s", ovr.StartTime, ovr.EndTime))
		}

	default:
		win, err := e.BaseAvailability(ctx, locticianID, date)
		if err != nil {
			return err
		}
		if win == nil {
			res.AvailabilityIssues = append(res.AvailabilityIssues,
				fmt.Sprintf("no availability pattern for %s", dateStr))
		} else if e.outsideWindow(start, end, date, win.Start, win.End) {
			res.AvailabilityIssues = append(res.AvailabilityIssues,
				fmt.Sprintf("requested time is outside working hours %s-%s", win.Start, win.End))
		}
	}

	// Holiday check runs regardless of the outcome above.
	if name, ok := timeutil.DanishHoliday(date); ok {
		res.AvailabilityIssues = append(res.AvailabilityIssues,
			fmt.Sprintf("%s is a public holiday (%s)", dateStr, name))
	}

	return nil
}

func (e *Engine) outsideWindow(start, end, date time.Time, winStart, winEnd timeutil.TimeOfDay) bool {
	ws := winStart.At(date, e.loc)
	we := winEnd.At(date, e.loc)
	return start.Before(ws) || end.After(we)
}

// AvailableSlots enumerates candidate slots for one date by walking the
// resolved working window in interval steps. A slot is emitted whenever
// slot start + duration still fits the window; its availability is the
// negation of CheckConflicts on the slot's exact window, then re-checked
// against the configured buffer zones on each side.
func (e *Engine) AvailableSlots(ctx context.Context, locticianID uuid.UUID, date time.Time, durationMinutes, intervalMinutes int, excludeBooking *uuid.UUID) ([]AvailabilitySlot, error) {
	if durationMinutes <= 0 || intervalMinutes <= 0 {
		return nil, ErrInvalidSlotParams
	}

	day := timeutil.DateOnly(date, e.loc)

	win, err := e.resolveDayWindow(ctx, locticianID, day)
	if err != nil {
		return nil, err
	}
	if win == nil {
		return []AvailabilitySlot{}, nil
	}

	var (
		duration = time.Duration(durationMinutes) * time.Minute
		interval = time.Duration(intervalMinutes) * time.Minute
		winStart = win.Start.At(day, e.loc)
		winEnd   = win.End.At(day, e.loc)
		slots    = []AvailabilitySlot{}
	)

	for s := winStart; !s.Add(duration).After(winEnd); s = s.Add(interval) {
		slotEnd := s.Add(duration)

		cr, err := e.CheckConflicts(ctx, locticianID, s, slotEnd, excludeBooking, nil)
		if err != nil {
			return nil, err
		}

		slot := AvailabilitySlot{
			Start:     s,
			End:       slotEnd,
			Available: !cr.HasConflicts,
			Conflicts: append(append([]string{}, cr.Conflicts...), cr.AvailabilityIssues...),
		}

		if slot.Available && e.bufferMinutes > 0 {
			if err := e.applyBuffer(ctx, locticianID, excludeBooking, &slot); err != nil {
				return nil, err
			}
		}

		slots = append(slots, slot)
	}

	return slots, nil
}

// applyBuffer re-checks the zones immediately before and after an available
// slot. Only bookings and events count inside a buffer zone; hours and
// holidays are judged on the slot itself.
func (e *Engine) applyBuffer(ctx context.Context, locticianID uuid.UUID, excludeBooking *uuid.UUID, slot *AvailabilitySlot) error {
	buffer := time.Duration(e.bufferMinutes) * time.Minute

	zones := []struct {
		start, end time.Time
		where      string
	}{
		{slot.Start.Add(-buffer), slot.Start, "before"},
		{slot.End, slot.End.Add(buffer), "after"},
	}

	for _, z := range zones {
		bookings, err := e.ConflictingBookings(ctx, locticianID, z.start, z.end, excludeBooking)
		if err != nil {
			return fmt.Errorf("buffer booking check: %w", err)
		}
		for _, b := range bookings {
			slot.Available = false
			slot.Conflicts = append(slot.Conflicts,
				fmt.Sprintf("booking %s within the buffer %s this slot", b.Number, z.where))
		}

		events, err := e.ConflictingEvents(ctx, locticianID, z.start, z.end, nil)
		if err != nil {
			return fmt.Errorf("buffer event check: %w", err)
		}
		for _, ev := range events {
			slot.Available = false
			slot.Conflicts = append(slot.Conflicts,
				fmt.Sprintf("event %q within the buffer %s this slot", ev.Title, z.where))
		}
	}

	return nil
}

// resolveDayWindow applies override-over-pattern precedence for one date.
// Returns nil when the day is closed or has no availability at all.
func (e *Engine) resolveDayWindow(ctx context.Context, locticianID uuid.UUID, day time.Time) (*DayWindow, error) {
	ovr, err := e.OverrideForDate(ctx, locticianID, day)
	if err != nil {
		return nil, err
	}
	if ovr != nil {
		if !ovr.IsAvailable || ovr.StartTime == nil || ovr.EndTime == nil {
			return nil, nil
		}
		return &DayWindow{Start: *ovr.StartTime, End: *ovr.EndTime}, nil
	}
	return e.BaseAvailability(ctx, locticianID, day)
}
