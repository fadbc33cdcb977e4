package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/strandloc/booking-calendar/internal/calendar"
)

type CreatePatternRequest struct {
	DayOfWeek      int     `json:"day_of_week"`
	StartTime      string  `json:"start_time"` // HH:MM
	EndTime        string  `json:"end_time"`
	EffectiveFrom  string  `json:"effective_from"` // YYYY-MM-DD
	EffectiveUntil *string `json:"effective_until,omitempty"`
}

type PatternResponse struct {
	ID             uuid.UUID `json:"id"`
	LocticianID    uuid.UUID `json:"loctician_id"`
	DayOfWeek      int       `json:"day_of_week"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	EffectiveFrom  string    `json:"effective_from"`
	EffectiveUntil *string   `json:"effective_until,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func patternResponse(p *calendar.AvailabilityPattern) PatternResponse {
	resp := PatternResponse{
		ID:            p.ID,
		LocticianID:   p.LocticianID,
		DayOfWeek:     p.DayOfWeek,
		StartTime:     p.StartTime.String(),
		EndTime:       p.EndTime.String(),
		EffectiveFrom: p.EffectiveFrom.Format("2006-01-02"),
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.EffectiveUntil != nil {
		until := p.EffectiveUntil.Format("2006-01-02")
		resp.EffectiveUntil = &until
	}
	return resp
}

type CreateOverrideRequest struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	IsAvailable bool    `json:"is_available"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	CreatedBy   string  `json:"created_by"`
}

type BulkOverridesRequest struct {
	Dates       []string `json:"dates"`
	IsAvailable bool     `json:"is_available"`
	StartTime   *string  `json:"start_time,omitempty"`
	EndTime     *string  `json:"end_time,omitempty"`
	Reason      *string  `json:"reason,omitempty"`
	CreatedBy   string   `json:"created_by"`
}

type OverrideResponse struct {
	ID          uuid.UUID `json:"id"`
	LocticianID uuid.UUID `json:"loctician_id"`
	Date        string    `json:"date"`
	IsAvailable bool      `json:"is_available"`
	StartTime   *string   `json:"start_time,omitempty"`
	EndTime     *string   `json:"end_time,omitempty"`
	Reason      *string   `json:"reason,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func overrideResponse(o *calendar.AvailabilityOverride) OverrideResponse {
	resp := OverrideResponse{
		ID:          o.ID,
		LocticianID: o.LocticianID,
		Date:        o.Date.Format("2006-01-02"),
		IsAvailable: o.IsAvailable,
		Reason:      o.Reason,
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.StartTime != nil {
		s := o.StartTime.String()
		resp.StartTime = &s
	}
	if o.EndTime != nil {
		e := o.EndTime.String()
		resp.EndTime = &e
	}
	return resp
}

type BulkOverridesResponse struct {
	Written []OverrideResponse `json:"written"`
	Skipped []string           `json:"skipped"`
}

type EventRequest struct {
	Title       string                   `json:"title"`
	Description *string                  `json:"description,omitempty"`
	EventType   string                   `json:"event_type"`
	Start       time.Time                `json:"start"`
	End         time.Time                `json:"end"`
	Public      bool                     `json:"public"`
	IsRecurring bool                     `json:"is_recurring"`
	Recurrence  *calendar.RecurrenceRule `json:"recurrence,omitempty"`
	CreatedBy   string                   `json:"created_by"`
}

type EventResponse struct {
	ID          uuid.UUID                `json:"id"`
	LocticianID uuid.UUID                `json:"loctician_id"`
	Title       string                   `json:"title"`
	Description *string                  `json:"description,omitempty"`
	EventType   string                   `json:"event_type"`
	Start       time.Time                `json:"start"`
	End         time.Time                `json:"end"`
	Public      bool                     `json:"public"`
	IsRecurring bool                     `json:"is_recurring"`
	Recurrence  *calendar.RecurrenceRule `json:"recurrence,omitempty"`
	CreatedBy   uuid.UUID                `json:"created_by"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

func eventResponse(ev *calendar.CalendarEvent) EventResponse {
	return EventResponse{
		ID:          ev.ID,
		LocticianID: ev.LocticianID,
		Title:       ev.Title,
		Description: ev.Description,
		EventType:   string(ev.Type),
		Start:       ev.Start,
		End:         ev.End,
		Public:      ev.Public,
		IsRecurring: ev.IsRecurring,
		Recurrence:  ev.Recurrence,
		CreatedBy:   ev.CreatedBy,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

type SlotResponse struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
	Conflicts []string  `json:"conflicts,omitempty"`
}

type SlotsResponse struct {
	Date  string         `json:"date"`
	Slots []SlotResponse `json:"slots"`
}

type ConflictCheckResponse struct {
	HasConflicts       bool        `json:"has_conflicts"`
	Conflicts          []string    `json:"conflicts"`
	BookingIDs         []uuid.UUID `json:"booking_ids,omitempty"`
	EventIDs           []uuid.UUID `json:"event_ids,omitempty"`
	AvailabilityIssues []string    `json:"availability_issues"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
