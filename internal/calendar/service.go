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

var (
	ErrInvalidTimeRange        = errors.New("start time must be before end time")
	ErrInvalidEffectiveRange   = errors.New("effective until must be after effective from")
	ErrInvalidDayOfWeek        = errors.New("day of week must be between 0 (Sunday) and 6 (Saturday)")
	ErrPastDate                = errors.New("date must not be in the past")
	ErrOverrideHoursRequired   = errors.New("an available override requires start and end times")
	ErrInvalidEventType        = errors.New("unknown event type")
	ErrRecurrenceRuleRequired  = errors.New("a recurring event requires a recurrence rule")
	ErrRecurrenceRuleForbidden = errors.New("a non-recurring event must not carry a recurrence rule")
	ErrEmptyTitle              = errors.New("event title is required")
)

// Locker serializes mutations per loctician so a concurrent writer cannot
// slip between a conflict check and the write it guards.
type Locker interface {
	WithLocticianLock(ctx context.Context, locticianID uuid.UUID, fn func(ctx context.Context) error) error
}

// ChangeNotification is the payload broadcast after every availability-
// affecting mutation.
type ChangeNotification struct {
	Type         string    `json:"type"`
	Action       string    `json:"action"`
	LocticianID  uuid.UUID `json:"loctician_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Data         any       `json:"data,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Notifier delivers change notifications best-effort; implementations log
// and swallow delivery failures.
type Notifier interface {
	BroadcastToUser(ctx context.Context, locticianID uuid.UUID, msg ChangeNotification)
}

// Service owns CRUD for patterns, overrides and events, and composes the
// engine and expander into schedule views and iCal exports. Dependencies,
// including the clock, are constructor-injected.
type Service struct {
	locticians LocticianRepository
	patterns   PatternRepository
	overrides  OverrideRepository
	events     EventRepository
	bookings   BookingRepository

	engine   *Engine
	expander *RecurrenceExpander
	locker   Locker
	notifier Notifier

	loc   *time.Location
	clock func() time.Time
	log   zerolog.Logger
}

type ServiceDeps struct {
	Locticians LocticianRepository
	Patterns   PatternRepository
	Overrides  OverrideRepository
	Events     EventRepository
	Bookings   BookingRepository
	Engine     *Engine
	Expander   *RecurrenceExpander
	Locker     Locker
	Notifier   Notifier
	Location   *time.Location
	Clock      func() time.Time
	Logger     zerolog.Logger
}

func NewService(deps ServiceDeps) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		locticians: deps.Locticians,
		patterns:   deps.Patterns,
		overrides:  deps.Overrides,
		events:     deps.Events,
		bookings:   deps.Bookings,
		engine:     deps.Engine,
		expander:   deps.Expander,
		locker:     deps.Locker,
		notifier:   deps.Notifier,
		loc:        deps.Location,
		clock:      clock,
		log:        deps.Logger,
	}
}

// Engine exposes the read-only availability engine to callers that only
// query (the booking subsystem's pre-commit checks).
func (s *Service) Engine() *Engine { return s.engine }

// -- Availability patterns --

// CreatePattern inserts a new weekly pattern, deactivating every active
// pattern for the same loctician and weekday whose effective range intersects
// the new one. The deactivate-then-insert sequence runs under the loctician
// lock.
func (s *Service) CreatePattern(ctx context.Context, p *AvailabilityPattern) error {
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if p.StartTime >= p.EndTime {
		return ErrInvalidTimeRange
	}
	p.EffectiveFrom = timeutil.DateOnly(p.EffectiveFrom, s.loc)
	if p.EffectiveUntil != nil {
		until := timeutil.DateOnly(*p.EffectiveUntil, s.loc)
		if !until.After(p.EffectiveFrom) {
			return ErrInvalidEffectiveRange
		}
		p.EffectiveUntil = &until
	}

	err := s.locker.WithLocticianLock(ctx, p.LocticianID, func(ctx context.Context) error {
		existing, err := s.patterns.ActiveOverlapping(ctx, p.LocticianID, p.DayOfWeek, p.EffectiveFrom, p.EffectiveUntil)
		if err != nil {
			return fmt.Errorf("find overlapping patterns: %w", err)
		}
		if len(existing) > 0 {
			ids := make([]uuid.UUID, 0, len(existing))
			for _, old := range existing {
				ids = append(ids, old.ID)
			}
			if err := s.patterns.Deactivate(ctx, ids); err != nil {
				return fmt.Errorf("deactivate superseded patterns: %w", err)
			}
			s.log.Info().
				Str("loctician_id", p.LocticianID.String()).
				Int("day_of_week", p.DayOfWeek).
				Int("superseded", len(ids)).
				Msg("deactivated overlapping availability patterns")
		}

		p.Active = true
		if err := s.patterns.Create(ctx, p); err != nil {
			return fmt.Errorf("create pattern: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, p.LocticianID, "created", "availability_pattern", p.ID, p)
	return nil
}

func (s *Service) DeactivatePattern(ctx context.Context, locticianID, id uuid.UUID) error {
	p, err := s.patterns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.LocticianID != locticianID {
		return ErrPatternNotFound
	}
	if err := s.patterns.Deactivate(ctx, []uuid.UUID{id}); err != nil {
		return fmt.Errorf("deactivate pattern: %w", err)
	}
	s.notify(ctx, locticianID, "deleted", "availability_pattern", id, nil)
	return nil
}

func (s *Service) ListPatterns(ctx context.Context, locticianID uuid.UUID, includeInactive bool) ([]*AvailabilityPattern, error) {
	return s.patterns.ListByLoctician(ctx, locticianID, includeInactive)
}

// -- Availability overrides --

// CreateOverride upserts the single override for (loctician, date). The date
// must not be in the past. The upsert runs under the loctician lock; the
// notification action reflects whether a row was created or updated.
func (s *Service) CreateOverride(ctx context.Context, o *AvailabilityOverride) error {
	if err := s.validateOverride(o); err != nil {
		return err
	}

	var created bool
	err := s.locker.WithLocticianLock(ctx, o.LocticianID, func(ctx context.Context) error {
		var err error
		created, err = s.overrides.Upsert(ctx, o)
		if err != nil {
			return fmt.Errorf("upsert override: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	action := "updated"
	if created {
		action = "created"
	}
	s.notify(ctx, o.LocticianID, action, "availability_override", o.ID, o)
	return nil
}

// CreateOverridesBulk applies one override template to many dates. The batch
// is deliberately best-effort: past dates are skipped and logged, the rest
// are upserted one by one. It returns the overrides written and the dates
// skipped.
func (s *Service) CreateOverridesBulk(ctx context.Context, locticianID, createdBy uuid.UUID, dates []time.Time, template AvailabilityOverride) ([]*AvailabilityOverride, []time.Time, error) {
	var (
		written []*AvailabilityOverride
		skipped []time.Time
	)

	for _, date := range dates {
		o := template
		o.ID = uuid.Nil
		o.LocticianID = locticianID
		o.CreatedBy = createdBy
		o.Date = timeutil.DateOnly(date, s.loc)

		if err := s.CreateOverride(ctx, &o); err != nil {
			if errors.Is(err, ErrPastDate) {
				s.log.Warn().
					Str("loctician_id", locticianID.String()).
					Str("date", o.Date.Format("2006-01-02")).
					Msg("skipping past date in bulk override creation")
				skipped = append(skipped, o.Date)
				continue
			}
			return written, skipped, err
		}
		saved := o
		written = append(written, &saved)
	}

	return written, skipped, nil
}

func (s *Service) DeleteOverride(ctx context.Context, locticianID, id uuid.UUID) error {
	if _, err := s.overrides.Delete(ctx, locticianID, id); err != nil {
		return err
	}
	s.notify(ctx, locticianID, "deleted", "availability_override", id, nil)
	return nil
}

func (s *Service) ListOverrides(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*AvailabilityOverride, error) {
	return s.overrides.ListRange(ctx, locticianID, timeutil.DateOnly(from, s.loc), timeutil.DateOnly(to, s.loc))
}

func (s *Service) validateOverride(o *AvailabilityOverride) error {
	o.Date = timeutil.DateOnly(o.Date, s.loc)
	today := timeutil.DateOnly(s.clock(), s.loc)
	if o.Date.Before(today) {
		return ErrPastDate
	}
	if o.IsAvailable {
		if o.StartTime == nil || o.EndTime == nil {
			return ErrOverrideHoursRequired
		}
		if *o.StartTime >= *o.EndTime {
			return ErrInvalidTimeRange
		}
	} else {
		// Closed days carry no hours.
		o.StartTime = nil
		o.EndTime = nil
	}
	return nil
}

// -- Calendar events --

// CreateEvent validates and persists an event. Conflicts with existing
// bookings or events are logged as warnings but never block creation; the
// loctician is assumed to know their own calendar.
func (s *Service) CreateEvent(ctx context.Context, ev *CalendarEvent) error {
	if err := validateEvent(ev); err != nil {
		return err
	}

	s.warnOnConflicts(ctx, ev, nil)

	err := s.locker.WithLocticianLock(ctx, ev.LocticianID, func(ctx context.Context) error {
		if err := s.events.Create(ctx, ev); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, ev.LocticianID, "created", "calendar_event", ev.ID, ev)
	return nil
}

func (s *Service) UpdateEvent(ctx context.Context, ev *CalendarEvent) error {
	if err := validateEvent(ev); err != nil {
		return err
	}

	s.warnOnConflicts(ctx, ev, &ev.ID)

	err := s.locker.WithLocticianLock(ctx, ev.LocticianID, func(ctx context.Context) error {
		if err := s.events.Update(ctx, ev); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, ev.LocticianID, "updated", "calendar_event", ev.ID, ev)
	return nil
}

func (s *Service) DeleteEvent(ctx context.Context, locticianID, id uuid.UUID) error {
	if _, err := s.events.Delete(ctx, locticianID, id); err != nil {
		return err
	}
	s.notify(ctx, locticianID, "deleted", "calendar_event", id, nil)
	return nil
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*CalendarEvent, error) {
	return s.events.GetByID(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*CalendarEvent, error) {
	return s.events.ListByLoctician(ctx, locticianID, from, to)
}

func validateEvent(ev *CalendarEvent) error {
	if ev.Title == "" {
		return ErrEmptyTitle
	}
	if !ev.Type.Valid() {
		return ErrInvalidEventType
	}
	if !ev.Start.Before(ev.End) {
		return ErrInvalidTimeRange
	}
	if ev.IsRecurring && ev.Recurrence == nil {
		return ErrRecurrenceRuleRequired
	}
	if !ev.IsRecurring && ev.Recurrence != nil {
		return ErrRecurrenceRuleForbidden
	}
	return nil
}

func (s *Service) warnOnConflicts(ctx context.Context, ev *CalendarEvent, excludeEvent *uuid.UUID) {
	cr, err := s.engine.CheckConflicts(ctx, ev.LocticianID, ev.Start, ev.End, nil, excludeEvent)
	if err != nil {
		s.log.Warn().Err(err).
			Str("loctician_id", ev.LocticianID.String()).
			Msg("conflict check before event write failed")
		return
	}
	if cr.HasConflicts {
		s.log.Warn().
			Str("loctician_id", ev.LocticianID.String()).
			Str("title", ev.Title).
			Strs("conflicts", cr.Conflicts).
			Strs("availability_issues", cr.AvailabilityIssues).
			Msg("event overlaps existing calendar entries, creating anyway")
	}
}

// -- Notifications --

func (s *Service) notify(ctx context.Context, locticianID uuid.UUID, action, resourceType string, resourceID uuid.UUID, data any) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToUser(ctx, locticianID, ChangeNotification{
		Type:         "availability_update",
		Action:       action,
		LocticianID:  locticianID,
		ResourceType: resourceType,
		ResourceID:   resourceID.String(),
		Data:         data,
		Timestamp:    s.clock().UTC(),
	})
}
