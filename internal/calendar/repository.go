package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLocticianNotFound = errors.New("loctician not found")
	ErrPatternNotFound   = errors.New("availability pattern not found")
	ErrOverrideNotFound  = errors.New("availability override not found")
	ErrEventNotFound     = errors.New("calendar event not found")
)

type LocticianRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Loctician, error)
}

type PatternRepository interface {
	Create(ctx context.Context, p *AvailabilityPattern) error
	GetByID(ctx context.Context, id uuid.UUID) (*AvailabilityPattern, error)

	// ActiveForDay returns active patterns for one weekday whose effective
	// range covers date, most recently effective first.
	ActiveForDay(ctx context.Context, locticianID uuid.UUID, dayOfWeek int, date time.Time) ([]*AvailabilityPattern, error)

	// ActiveOverlapping returns active patterns for one weekday whose
	// effective range intersects [from, until] (until nil = open-ended).
	ActiveOverlapping(ctx context.Context, locticianID uuid.UUID, dayOfWeek int, from time.Time, until *time.Time) ([]*AvailabilityPattern, error)

	Deactivate(ctx context.Context, ids []uuid.UUID) error
	ListByLoctician(ctx context.Context, locticianID uuid.UUID, includeInactive bool) ([]*AvailabilityPattern, error)
}

type OverrideRepository interface {
	// Upsert inserts the override or, when one already exists for the same
	// loctician and date, updates it in place. Reports whether a new row was
	// created.
	Upsert(ctx context.Context, o *AvailabilityOverride) (created bool, err error)

	GetForDate(ctx context.Context, locticianID uuid.UUID, date time.Time) (*AvailabilityOverride, error)
	ListRange(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*AvailabilityOverride, error)

	// Delete removes the override only when it belongs to locticianID.
	Delete(ctx context.Context, locticianID, id uuid.UUID) (*AvailabilityOverride, error)

	// DeleteOlderThan removes overrides dated before cutoff (retention sweep).
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type EventRepository interface {
	Create(ctx context.Context, ev *CalendarEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*CalendarEvent, error)
	Update(ctx context.Context, ev *CalendarEvent) error

	// Delete removes the event only when it belongs to locticianID.
	Delete(ctx context.Context, locticianID, id uuid.UUID) (*CalendarEvent, error)

	// Candidates returns events that may occupy [start, end): non-recurring
	// events strictly overlapping the window plus every recurring event whose
	// canonical start precedes the window end. Recurring candidates still
	// need expansion before overlap-testing.
	Candidates(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*CalendarEvent, error)

	ListByLoctician(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*CalendarEvent, error)

	// DeleteFinishedBefore removes non-recurring events that ended before
	// cutoff (retention sweep). Recurring events are kept.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BookingRepository is a read-only view into the booking subsystem.
type BookingRepository interface {
	// Overlapping returns bookings in a blocking status whose window strictly
	// overlaps [start, end), optionally excluding one booking id.
	Overlapping(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error)

	ListRange(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*Booking, error)
}
