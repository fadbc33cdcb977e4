package calendar

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/teambition/rrule-go"
)

// occurrenceCap bounds a single expansion so a runaway rule cannot stall a
// request.
const occurrenceCap = 1000

// RecurrenceExpander turns a stored recurrence rule plus a query window into
// concrete occurrences. It owns no state besides a logger.
type RecurrenceExpander struct {
	log zerolog.Logger
}

func NewRecurrenceExpander(log zerolog.Logger) *RecurrenceExpander {
	return &RecurrenceExpander{log: log}
}

// Expand returns the event's occurrences whose date falls within
// [windowStart, windowEnd] (inclusive calendar dates, midnight-anchored).
// Non-recurring events yield exactly the canonical occurrence regardless of
// the window; the caller filters. A malformed rule fails soft: it is logged
// and the canonical occurrence is returned.
func (x *RecurrenceExpander) Expand(ev *CalendarEvent, windowStart, windowEnd time.Time) []Occurrence {
	canonical := []Occurrence{{Start: ev.Start, End: ev.End}}

	if !ev.IsRecurring || ev.Recurrence == nil {
		return canonical
	}

	r, err := buildRule(ev)
	if err != nil {
		x.log.Warn().Err(err).
			Str("event_id", ev.ID.String()).
			Msg("malformed recurrence rule, falling back to canonical occurrence")
		return canonical
	}

	windowEndOfDay := windowEnd.AddDate(0, 0, 1).Add(-time.Second)
	starts := r.Between(windowStart, windowEndOfDay, true)
	if len(starts) > occurrenceCap {
		x.log.Warn().
			Str("event_id", ev.ID.String()).
			Int("cap", occurrenceCap).
			Msg("recurrence expansion truncated")
		starts = starts[:occurrenceCap]
	}

	duration := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		out = append(out, Occurrence{Start: s, End: s.Add(duration)})
	}
	return out
}

// rruleWeekdays maps the stored 0=Sunday convention onto rrule weekdays.
var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

func buildRule(ev *CalendarEvent) (*rrule.RRule, error) {
	rule := ev.Recurrence

	var freq rrule.Frequency
	switch rule.Frequency {
	case FreqDaily:
		freq = rrule.DAILY
	case FreqWeekly:
		freq = rrule.WEEKLY
	case FreqMonthly:
		freq = rrule.MONTHLY
	case FreqYearly:
		freq = rrule.YEARLY
	default:
		return nil, fmt.Errorf("unknown frequency %q", rule.Frequency)
	}

	interval := rule.Interval
	if interval == 0 {
		interval = 1
	}
	if interval < 0 {
		return nil, fmt.Errorf("negative interval %d", interval)
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  ev.Start,
	}

	// Count wins over Until when both are present.
	switch {
	case rule.Count != nil:
		if *rule.Count <= 0 {
			return nil, fmt.Errorf("non-positive count %d", *rule.Count)
		}
		opt.Count = *rule.Count
	case rule.Until != nil:
		opt.Until = *rule.Until
	}

	for _, wd := range rule.ByDay {
		if wd < 0 || wd > 6 {
			return nil, fmt.Errorf("by_day weekday %d out of range", wd)
		}
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
	}
	for _, md := range rule.ByMonthDay {
		if md < 1 || md > 31 {
			return nil, fmt.Errorf("by_month_day %d out of range", md)
		}
		opt.Bymonthday = append(opt.Bymonthday, md)
	}
	for _, m := range rule.ByMonth {
		if m < 1 || m > 12 {
			return nil, fmt.Errorf("by_month %d out of range", m)
		}
		opt.Bymonth = append(opt.Bymonth, m)
	}

	return rrule.NewRRule(opt)
}
