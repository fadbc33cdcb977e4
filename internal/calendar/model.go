package calendar

import (
	"time"

	"github.com/google/uuid"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no_show"
)

// Blocks reports whether a booking in this status occupies its window for
// conflict purposes. Completed bookings are history; they never block.
func (s BookingStatus) Blocks() bool {
	return s == BookingPending || s == BookingConfirmed || s == BookingInProgress
}

type EventType string

const (
	EventBreak     EventType = "break"
	EventMeeting   EventType = "meeting"
	EventVacation  EventType = "vacation"
	EventSickLeave EventType = "sick_leave"
	EventTraining  EventType = "training"
	EventPersonal  EventType = "personal"
)

func (t EventType) Valid() bool {
	switch t {
	case EventBreak, EventMeeting, EventVacation, EventSickLeave, EventTraining, EventPersonal:
		return true
	}
	return false
}

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// RecurrenceRule describes how a calendar event repeats. Count and Until are
// mutually exclusive; when both are set, Count wins.
type RecurrenceRule struct {
	Frequency  Frequency  `json:"frequency"`
	Interval   int        `json:"interval,omitempty"`
	Count      *int       `json:"count,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
	ByDay      []int      `json:"by_day,omitempty"` // weekdays, 0=Sunday .. 6=Saturday
	ByMonthDay []int      `json:"by_month_day,omitempty"`
	ByMonth    []int      `json:"by_month,omitempty"`
}

// Loctician is the calendar owner. Managed elsewhere; read-only here.
type Loctician struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityPattern is a recurring weekly working-hours template bounded by
// an effective date range. For a given loctician and weekday, active patterns
// must not have overlapping effective ranges; creating an overlapping one
// deactivates the prior ones.
type AvailabilityPattern struct {
	ID             uuid.UUID
	LocticianID    uuid.UUID
	DayOfWeek      int // 0=Sunday .. 6=Saturday
	StartTime      timeutil.TimeOfDay
	EndTime        timeutil.TimeOfDay
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time // nil = open-ended
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Covers reports whether the pattern's effective range includes date.
func (p *AvailabilityPattern) Covers(date time.Time) bool {
	if date.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveUntil == nil || !date.After(*p.EffectiveUntil)
}

// AvailabilityOverride is a single-date exception that fully replaces
// pattern-derived hours for that date. At most one exists per loctician+date.
type AvailabilityOverride struct {
	ID          uuid.UUID
	LocticianID uuid.UUID
	Date        time.Time
	IsAvailable bool
	StartTime   *timeutil.TimeOfDay // required together with EndTime when available
	EndTime     *timeutil.TimeOfDay
	Reason      *string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CalendarEvent is a non-booking occupant of a loctician's calendar.
// Recurring events store one canonical start/end plus a rule; concrete
// occurrences are derived on demand and never persisted.
type CalendarEvent struct {
	ID          uuid.UUID
	LocticianID uuid.UUID
	Title       string
	Description *string
	Type        EventType
	Start       time.Time
	End         time.Time
	Public      bool
	IsRecurring bool
	Recurrence  *RecurrenceRule
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Booking belongs to the booking subsystem; this core only reads it for
// conflict checks and schedule views.
type Booking struct {
	ID          uuid.UUID
	Number      string // human-facing booking number, e.g. BK-2024-0117
	LocticianID uuid.UUID
	CustomerID  uuid.UUID
	ServiceID   uuid.UUID
	ServiceName string
	Start       time.Time
	End         time.Time
	Status      BookingStatus
}

// Occurrence is one concrete instance of a (possibly recurring) event.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// DayWindow is the base working window resolved for one date.
type DayWindow struct {
	Start timeutil.TimeOfDay
	End   timeutil.TimeOfDay
}

// ConflictResult is the verdict for one requested time window. Built fresh
// per query, never cached.
type ConflictResult struct {
	HasConflicts       bool
	Conflicts          []string
	BookingIDs         []uuid.UUID
	EventIDs           []uuid.UUID
	AvailabilityIssues []string
}

// AvailabilitySlot is one candidate appointment window produced by slot
// enumeration.
type AvailabilitySlot struct {
	Start     time.Time
	End       time.Time
	Available bool
	Conflicts []string
}

type ViewType string

const (
	ViewDay    ViewType = "day"
	ViewWeek   ViewType = "week"
	ViewMonth  ViewType = "month"
	ViewAgenda ViewType = "agenda"
)

func (v ViewType) Valid() bool {
	switch v {
	case ViewDay, ViewWeek, ViewMonth, ViewAgenda:
		return true
	}
	return false
}

// ScheduleItem is the generic read-model shape shared by bookings and event
// occurrences in a schedule view.
type ScheduleItem struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Kind     string         `json:"kind"` // "booking" or "event"
	Status   string         `json:"status,omitempty"`
	Color    string         `json:"color,omitempty"`
	Editable bool           `json:"editable"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DayHours is the resolved working window for one day of a schedule view.
type DayHours struct {
	Date   string  `json:"date"`
	Open   bool    `json:"open"`
	Start  *string `json:"start,omitempty"`
	End    *string `json:"end,omitempty"`
	Source string  `json:"source"` // "override", "pattern" or "none"
}

// ScheduleView is a merged, time-ordered read model of one loctician's
// calendar over a window.
type ScheduleView struct {
	LocticianID uuid.UUID           `json:"loctician_id"`
	View        ViewType            `json:"view"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Items       []ScheduleItem      `json:"items"`
	Hours       map[string]DayHours `json:"hours"`
}
