package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/strandloc/booking-calendar/internal/calendar"
	redisclient "github.com/strandloc/booking-calendar/internal/redis"
	"github.com/strandloc/booking-calendar/internal/timeutil"
)

// -- Availability patterns --

func createPatternHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		var req CreatePatternRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := timeutil.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return
		}
		end, err := timeutil.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return
		}
		from, err := time.Parse("2006-01-02", req.EffectiveFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_effective_from", "effective_from must be YYYY-MM-DD")
			return
		}
		var until *time.Time
		if req.EffectiveUntil != nil {
			u, err := time.Parse("2006-01-02", *req.EffectiveUntil)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_effective_until", "effective_until must be YYYY-MM-DD")
				return
			}
			until = &u
		}

		p := &calendar.AvailabilityPattern{
			LocticianID:    locticianID,
			DayOfWeek:      req.DayOfWeek,
			StartTime:      start,
			EndTime:        end,
			EffectiveFrom:  from,
			EffectiveUntil: until,
		}
		if err := svc.CreatePattern(r.Context(), p); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, patternResponse(p))
	}
}

func listPatternsHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		patterns, err := svc.ListPatterns(r.Context(), locticianID, includeInactive)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]PatternResponse, 0, len(patterns))
		for _, p := range patterns {
			resp = append(resp, patternResponse(p))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deletePatternHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "patternID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_pattern_id", "patternID must be a valid UUID")
			return
		}

		if err := svc.DeactivatePattern(r.Context(), locticianID, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// -- Availability overrides --

func createOverrideHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		var req CreateOverrideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		o, ok := overrideFromRequest(w, locticianID, req.Date, req.IsAvailable, req.StartTime, req.EndTime, req.Reason, req.CreatedBy)
		if !ok {
			return
		}

		if err := svc.CreateOverride(r.Context(), o); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, overrideResponse(o))
	}
}

func bulkOverridesHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		var req BulkOverridesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Dates) == 0 {
			writeError(w, http.StatusBadRequest, "empty_dates", "dates must contain at least one date")
			return
		}

		dates := make([]time.Time, 0, len(req.Dates))
		for _, d := range req.Dates {
			parsed, err := time.Parse("2006-01-02", d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "dates must be YYYY-MM-DD")
				return
			}
			dates = append(dates, parsed)
		}

		template, ok := overrideFromRequest(w, locticianID, req.Dates[0], req.IsAvailable, req.StartTime, req.EndTime, req.Reason, req.CreatedBy)
		if !ok {
			return
		}

		written, skipped, err := svc.CreateOverridesBulk(r.Context(), locticianID, template.CreatedBy, dates, *template)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := BulkOverridesResponse{
			Written: make([]OverrideResponse, 0, len(written)),
			Skipped: make([]string, 0, len(skipped)),
		}
		for _, o := range written {
			resp.Written = append(resp.Written, overrideResponse(o))
		}
		for _, d := range skipped {
			resp.Skipped = append(resp.Skipped, d.Format("2006-01-02"))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listOverridesHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		from, to, ok := rangeParams(w, r)
		if !ok {
			return
		}

		overrides, err := svc.ListOverrides(r.Context(), locticianID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]OverrideResponse, 0, len(overrides))
		for _, o := range overrides {
			resp = append(resp, overrideResponse(o))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteOverrideHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "overrideID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_override_id", "overrideID must be a valid UUID")
			return
		}

		if err := svc.DeleteOverride(r.Context(), locticianID, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// -- Calendar events --

func createEventHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		ev, ok := eventFromRequest(w, r, locticianID)
		if !ok {
			return
		}

		if err := svc.CreateEvent(r.Context(), ev); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, eventResponse(ev))
	}
}

func updateEventHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event_id", "eventID must be a valid UUID")
			return
		}

		existing, err := svc.GetEvent(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if existing.LocticianID != locticianID {
			handleServiceError(w, calendar.ErrEventNotFound)
			return
		}

		ev, ok := eventFromRequest(w, r, locticianID)
		if !ok {
			return
		}
		ev.ID = id
		ev.CreatedBy = existing.CreatedBy

		if err := svc.UpdateEvent(r.Context(), ev); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eventResponse(ev))
	}
}

func getEventHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event_id", "eventID must be a valid UUID")
			return
		}

		ev, err := svc.GetEvent(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if ev.LocticianID != locticianID {
			handleServiceError(w, calendar.ErrEventNotFound)
			return
		}
		writeJSON(w, http.StatusOK, eventResponse(ev))
	}
}

func listEventsHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		from, to, ok := rangeParams(w, r)
		if !ok {
			return
		}

		events, err := svc.ListEvents(r.Context(), locticianID, from, to.AddDate(0, 0, 1))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]EventResponse, 0, len(events))
		for _, ev := range events {
			resp = append(resp, eventResponse(ev))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteEventHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "eventID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_event_id", "eventID must be a valid UUID")
			return
		}

		if err := svc.DeleteEvent(r.Context(), locticianID, id); err != nil {
			handleServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// -- Availability queries --

func slotsHandler(svc *calendar.Service, defaultInterval int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		date, err := time.Parse("2006-01-02", q.Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		duration := intParam(q.Get("duration"), 60)
		interval := intParam(q.Get("interval"), defaultInterval)

		var excludeBooking *uuid.UUID
		if raw := q.Get("exclude_booking"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_exclude_booking", "exclude_booking must be a valid UUID")
				return
			}
			excludeBooking = &id
		}

		slots, err := svc.Engine().AvailableSlots(r.Context(), locticianID, date, duration, interval, excludeBooking)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := SlotsResponse{
			Date:  date.Format("2006-01-02"),
			Slots: make([]SlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, SlotResponse{
				Start:     s.Start,
				End:       s.End,
				Available: s.Available,
				Conflicts: s.Conflicts,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func conflictsHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		start, err := time.Parse(time.RFC3339, q.Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC3339")
			return
		}
		end, err := time.Parse(time.RFC3339, q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be RFC3339")
			return
		}
		if !start.Before(end) {
			writeError(w, http.StatusBadRequest, "invalid_time_range", "start must be before end")
			return
		}

		var excludeBooking *uuid.UUID
		if raw := q.Get("exclude_booking"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_exclude_booking", "exclude_booking must be a valid UUID")
				return
			}
			excludeBooking = &id
		}

		cr, err := svc.Engine().CheckConflicts(r.Context(), locticianID, start, end, excludeBooking, nil)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ConflictCheckResponse{
			HasConflicts:       cr.HasConflicts,
			Conflicts:          emptyIfNil(cr.Conflicts),
			BookingIDs:         cr.BookingIDs,
			EventIDs:           cr.EventIDs,
			AvailabilityIssues: emptyIfNil(cr.AvailabilityIssues),
		})
	}
}

func scheduleHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		view := calendar.ViewType(q.Get("view"))
		if view == "" {
			view = calendar.ViewWeek
		}

		ref := time.Now()
		if raw := q.Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			ref = parsed
		}

		sv, err := svc.GetScheduleView(r.Context(), locticianID, view, ref)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sv)
	}
}

func icalHandler(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locticianID, ok := locticianParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		from := time.Now()
		to := from.AddDate(0, 3, 0)
		if raw := q.Get("from"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
			from = parsed
		}
		if raw := q.Get("to"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
			to = parsed
		}

		opts := calendar.ICalOptions{
			From:                from,
			To:                  to,
			IncludeBookings:     q.Get("bookings") != "false",
			IncludeEvents:       q.Get("events") != "false",
			IncludeAvailability: q.Get("availability") == "true",
		}

		doc, err := svc.ExportICal(r.Context(), locticianID, opts)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(doc))
	}
}

// -- Shared helpers --

func locticianParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "locticianID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_loctician_id", "locticianID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func rangeParams(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "invalid_range", "to must not precede from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func overrideFromRequest(w http.ResponseWriter, locticianID uuid.UUID, date string, isAvailable bool, startTime, endTime, reason *string, createdBy string) (*calendar.AvailabilityOverride, bool) {
	parsedDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return nil, false
	}
	creator, err := uuid.Parse(createdBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_created_by", "created_by must be a valid UUID")
		return nil, false
	}

	o := &calendar.AvailabilityOverride{
		LocticianID: locticianID,
		Date:        parsedDate,
		IsAvailable: isAvailable,
		Reason:      reason,
		CreatedBy:   creator,
	}
	if startTime != nil {
		t, err := timeutil.ParseTimeOfDay(*startTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM")
			return nil, false
		}
		o.StartTime = &t
	}
	if endTime != nil {
		t, err := timeutil.ParseTimeOfDay(*endTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM")
			return nil, false
		}
		o.EndTime = &t
	}
	return o, true
}

func eventFromRequest(w http.ResponseWriter, r *http.Request, locticianID uuid.UUID) (*calendar.CalendarEvent, bool) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil, false
	}
	creator, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_created_by", "created_by must be a valid UUID")
		return nil, false
	}

	return &calendar.CalendarEvent{
		LocticianID: locticianID,
		Title:       req.Title,
		Description: req.Description,
		Type:        calendar.EventType(req.EventType),
		Start:       req.Start,
		End:         req.End,
		Public:      req.Public,
		IsRecurring: req.IsRecurring,
		Recurrence:  req.Recurrence,
		CreatedBy:   creator,
	}, true
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrLocticianNotFound):
		writeError(w, http.StatusNotFound, "loctician_not_found", err.Error())
	case errors.Is(err, calendar.ErrPatternNotFound):
		writeError(w, http.StatusNotFound, "pattern_not_found", err.Error())
	case errors.Is(err, calendar.ErrOverrideNotFound):
		writeError(w, http.StatusNotFound, "override_not_found", err.Error())
	case errors.Is(err, calendar.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event_not_found", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "calendar_busy", "another change for this loctician is in flight, please retry shortly")
	case errors.Is(err, calendar.ErrInvalidTimeRange),
		errors.Is(err, calendar.ErrInvalidEffectiveRange),
		errors.Is(err, calendar.ErrInvalidDayOfWeek),
		errors.Is(err, calendar.ErrPastDate),
		errors.Is(err, calendar.ErrOverrideHoursRequired),
		errors.Is(err, calendar.ErrInvalidEventType),
		errors.Is(err, calendar.ErrRecurrenceRuleRequired),
		errors.Is(err, calendar.ErrRecurrenceRuleForbidden),
		errors.Is(err, calendar.ErrEmptyTitle),
		errors.Is(err, calendar.ErrInvalidSlotParams),
		errors.Is(err, calendar.ErrInvalidViewType):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
