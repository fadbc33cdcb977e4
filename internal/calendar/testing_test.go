package calendar

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

// In-memory repository fakes shared by the package tests.

type fakeLocticianRepo struct {
	locticians map[uuid.UUID]*Loctician
}

func (r *fakeLocticianRepo) GetByID(_ context.Context, id uuid.UUID) (*Loctician, error) {
	l, ok := r.locticians[id]
	if !ok {
		return nil, ErrLocticianNotFound
	}
	return l, nil
}

type fakePatternRepo struct {
	patterns []*AvailabilityPattern
}

func (r *fakePatternRepo) Create(_ context.Context, p *AvailabilityPattern) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	saved := *p
	r.patterns = append(r.patterns, &saved)
	return nil
}

func (r *fakePatternRepo) GetByID(_ context.Context, id uuid.UUID) (*AvailabilityPattern, error) {
	for _, p := range r.patterns {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatternNotFound
}

func (r *fakePatternRepo) ActiveForDay(_ context.Context, locticianID uuid.UUID, dayOfWeek int, date time.Time) ([]*AvailabilityPattern, error) {
	var out []*AvailabilityPattern
	for _, p := range r.patterns {
		if p.LocticianID == locticianID && p.DayOfWeek == dayOfWeek && p.Active && p.Covers(date) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EffectiveFrom.After(out[j].EffectiveFrom)
	})
	return out, nil
}

func (r *fakePatternRepo) ActiveOverlapping(_ context.Context, locticianID uuid.UUID, dayOfWeek int, from time.Time, until *time.Time) ([]*AvailabilityPattern, error) {
	var out []*AvailabilityPattern
	for _, p := range r.patterns {
		if p.LocticianID != locticianID || p.DayOfWeek != dayOfWeek || !p.Active {
			continue
		}
		if until != nil && p.EffectiveFrom.After(*until) {
			continue
		}
		if p.EffectiveUntil != nil && p.EffectiveUntil.Before(from) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakePatternRepo) Deactivate(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		for _, p := range r.patterns {
			if p.ID == id {
				p.Active = false
			}
		}
	}
	return nil
}

func (r *fakePatternRepo) ListByLoctician(_ context.Context, locticianID uuid.UUID, includeInactive bool) ([]*AvailabilityPattern, error) {
	var out []*AvailabilityPattern
	for _, p := range r.patterns {
		if p.LocticianID == locticianID && (p.Active || includeInactive) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeOverrideRepo struct {
	overrides []*AvailabilityOverride
}

func (r *fakeOverrideRepo) Upsert(_ context.Context, o *AvailabilityOverride) (bool, error) {
	for _, existing := range r.overrides {
		if existing.LocticianID == o.LocticianID && existing.Date.Equal(o.Date) {
			o.ID = existing.ID
			*existing = *o
			return false, nil
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	saved := *o
	r.overrides = append(r.overrides, &saved)
	return true, nil
}

func (r *fakeOverrideRepo) GetForDate(_ context.Context, locticianID uuid.UUID, date time.Time) (*AvailabilityOverride, error) {
	for _, o := range r.overrides {
		if o.LocticianID == locticianID && o.Date.Equal(date) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOverrideNotFound
}

func (r *fakeOverrideRepo) ListRange(_ context.Context, locticianID uuid.UUID, from, to time.Time) ([]*AvailabilityOverride, error) {
	var out []*AvailabilityOverride
	for _, o := range r.overrides {
		if o.LocticianID == locticianID && !o.Date.Before(from) && !o.Date.After(to) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *fakeOverrideRepo) Delete(_ context.Context, locticianID, id uuid.UUID) (*AvailabilityOverride, error) {
	for i, o := range r.overrides {
		if o.ID == id && o.LocticianID == locticianID {
			r.overrides = append(r.overrides[:i], r.overrides[i+1:]...)
			return o, nil
		}
	}
	return nil, ErrOverrideNotFound
}

func (r *fakeOverrideRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*AvailabilityOverride
	var purged int64
	for _, o := range r.overrides {
		if o.Date.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, o)
	}
	r.overrides = kept
	return purged, nil
}

type fakeEventRepo struct {
	events []*CalendarEvent
}

func (r *fakeEventRepo) Create(_ context.Context, ev *CalendarEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	saved := *ev
	r.events = append(r.events, &saved)
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (*CalendarEvent, error) {
	for _, ev := range r.events {
		if ev.ID == id {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, ErrEventNotFound
}

func (r *fakeEventRepo) Update(_ context.Context, ev *CalendarEvent) error {
	for _, existing := range r.events {
		if existing.ID == ev.ID {
			*existing = *ev
			return nil
		}
	}
	return ErrEventNotFound
}

func (r *fakeEventRepo) Delete(_ context.Context, locticianID, id uuid.UUID) (*CalendarEvent, error) {
	for i, ev := range r.events {
		if ev.ID == id && ev.LocticianID == locticianID {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return ev, nil
		}
	}
	return nil, ErrEventNotFound
}

func (r *fakeEventRepo) Candidates(_ context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*CalendarEvent, error) {
	var out []*CalendarEvent
	for _, ev := range r.events {
		if ev.LocticianID != locticianID {
			continue
		}
		if excludeID != nil && ev.ID == *excludeID {
			continue
		}
		if ev.IsRecurring {
			if ev.Start.Before(end) {
				cp := *ev
				out = append(out, &cp)
			}
		} else if timeutil.Overlaps(ev.Start, ev.End, start, end) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ListByLoctician(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*CalendarEvent, error) {
	return r.Candidates(ctx, locticianID, from, to, nil)
}

func (r *fakeEventRepo) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*CalendarEvent
	var purged int64
	for _, ev := range r.events {
		if !ev.IsRecurring && ev.End.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, ev)
	}
	r.events = kept
	return purged, nil
}

type fakeBookingRepo struct {
	bookings []*Booking
}

func (r *fakeBookingRepo) Overlapping(_ context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error) {
	var out []*Booking
	for _, b := range r.bookings {
		if b.LocticianID != locticianID || !b.Status.Blocks() {
			continue
		}
		if excludeID != nil && b.ID == *excludeID {
			continue
		}
		if timeutil.Overlaps(b.Start, b.End, start, end) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListRange(_ context.Context, locticianID uuid.UUID, from, to time.Time) ([]*Booking, error) {
	var out []*Booking
	for _, b := range r.bookings {
		if b.LocticianID == locticianID && timeutil.Overlaps(b.Start, b.End, from, to) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

type passthroughLocker struct{}

func (passthroughLocker) WithLocticianLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	msgs []ChangeNotification
}

func (n *recordingNotifier) BroadcastToUser(_ context.Context, _ uuid.UUID, msg ChangeNotification) {
	n.msgs = append(n.msgs, msg)
}

// harness wires a Service over the fakes with a fixed clock.
type harness struct {
	svc        *Service
	engine     *Engine
	locticians *fakeLocticianRepo
	patterns   *fakePatternRepo
	overrides  *fakeOverrideRepo
	events     *fakeEventRepo
	bookings   *fakeBookingRepo
	notifier   *recordingNotifier
	loc        *time.Location
	locticianID uuid.UUID
	now        time.Time
}

func newHarness(t *testing.T, bufferMinutes int) *harness {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Copenhagen")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	locticianID := uuid.New()
	h := &harness{
		locticians: &fakeLocticianRepo{locticians: map[uuid.UUID]*Loctician{
			locticianID: {ID: locticianID, Name: "Amara Jensen"},
		}},
		patterns:  &fakePatternRepo{},
		overrides: &fakeOverrideRepo{},
		events:    &fakeEventRepo{},
		bookings:  &fakeBookingRepo{},
		notifier:  &recordingNotifier{},
		loc:       loc,
		locticianID: locticianID,
		now:       time.Date(2024, 1, 2, 12, 0, 0, 0, loc),
	}

	log := zerolog.Nop()
	expander := NewRecurrenceExpander(log)
	h.engine = NewEngine(h.patterns, h.overrides, h.events, h.bookings, expander, loc, bufferMinutes, log)
	h.svc = NewService(ServiceDeps{
		Locticians: h.locticians,
		Patterns:   h.patterns,
		Overrides:  h.overrides,
		Events:     h.events,
		Bookings:   h.bookings,
		Engine:     h.engine,
		Expander:   expander,
		Locker:     passthroughLocker{},
		Notifier:   h.notifier,
		Location:   loc,
		Clock:      func() time.Time { return h.now },
		Logger:     log,
	})
	return h
}

func (h *harness) date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, h.loc)
}

func (h *harness) at(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, h.loc)
}

// addWeekdayPattern registers an open-ended active pattern from 2023-01-01.
func (h *harness) addWeekdayPattern(dayOfWeek int, start, end string) *AvailabilityPattern {
	p := &AvailabilityPattern{
		ID:            uuid.New(),
		LocticianID:   h.locticianID,
		DayOfWeek:     dayOfWeek,
		StartTime:     timeutil.MustTimeOfDay(start),
		EndTime:       timeutil.MustTimeOfDay(end),
		EffectiveFrom: h.date(2023, 1, 1),
		Active:        true,
	}
	h.patterns.patterns = append(h.patterns.patterns, p)
	return p
}

func (h *harness) addBooking(start, end time.Time, status BookingStatus) *Booking {
	b := &Booking{
		ID:          uuid.New(),
		Number:      "BK-2024-0001",
		LocticianID: h.locticianID,
		CustomerID:  uuid.New(),
		ServiceID:   uuid.New(),
		ServiceName: "Retwist",
		Start:       start,
		End:         end,
		Status:      status,
	}
	h.bookings.bookings = append(h.bookings.bookings, b)
	return b
}
