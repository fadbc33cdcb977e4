package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strandloc/booking-calendar/internal/timeutil"
)

// Postgres-backed repositories. Times of day are stored as minutes since
// midnight; recurrence rules as jsonb.

// PgRepositories bundles one implementation of every repository interface
// over a shared pool.
type PgRepositories struct {
	Locticians *PgLocticianRepository
	Patterns   *PgPatternRepository
	Overrides  *PgOverrideRepository
	Events     *PgEventRepository
	Bookings   *PgBookingRepository
}

func NewPgRepositories(pool *pgxpool.Pool) *PgRepositories {
	return &PgRepositories{
		Locticians: &PgLocticianRepository{pool: pool},
		Patterns:   &PgPatternRepository{pool: pool},
		Overrides:  &PgOverrideRepository{pool: pool},
		Events:     &PgEventRepository{pool: pool},
		Bookings:   &PgBookingRepository{pool: pool},
	}
}

// Locticians

type PgLocticianRepository struct {
	pool *pgxpool.Pool
}

func (r *PgLocticianRepository) GetByID(ctx context.Context, id uuid.UUID) (*Loctician, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM locticians
		WHERE id = $1
	`, id)

	var l Loctician
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocticianNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Availability patterns

type PgPatternRepository struct {
	pool *pgxpool.Pool
}

const patternColumns = `id, loctician_id, day_of_week, start_minutes, end_minutes,
	effective_from, effective_until, active, created_at, updated_at`

func scanPattern(row pgx.Row) (*AvailabilityPattern, error) {
	var (
		p          AvailabilityPattern
		start, end int
	)
	err := row.Scan(
		&p.ID,
		&p.LocticianID,
		&p.DayOfWeek,
		&start,
		&end,
		&p.EffectiveFrom,
		&p.EffectiveUntil,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatternNotFound
		}
		return nil, err
	}
	p.StartTime = timeutil.TimeOfDay(start)
	p.EndTime = timeutil.TimeOfDay(end)
	return &p, nil
}

func collectPatterns(rows pgx.Rows) ([]*AvailabilityPattern, error) {
	defer rows.Close()
	var out []*AvailabilityPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgPatternRepository) Create(ctx context.Context, p *AvailabilityPattern) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_patterns
			(id, loctician_id, day_of_week, start_minutes, end_minutes,
			 effective_from, effective_until, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true, now(), now())
		RETURNING `+patternColumns+`
	`, p.ID, p.LocticianID, p.DayOfWeek, int(p.StartTime), int(p.EndTime), p.EffectiveFrom, p.EffectiveUntil)

	created, err := scanPattern(row)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (r *PgPatternRepository) GetByID(ctx context.Context, id uuid.UUID) (*AvailabilityPattern, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patternColumns+`
		FROM availability_patterns
		WHERE id = $1
	`, id)
	return scanPattern(row)
}

func (r *PgPatternRepository) ActiveForDay(ctx context.Context, locticianID uuid.UUID, dayOfWeek int, date time.Time) ([]*AvailabilityPattern, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patternColumns+`
		FROM availability_patterns
		WHERE loctician_id = $1
		  AND day_of_week = $2
		  AND active
		  AND effective_from <= $3
		  AND (effective_until IS NULL OR effective_until >= $3)
		ORDER BY effective_from DESC
	`, locticianID, dayOfWeek, date)
	if err != nil {
		return nil, err
	}
	return collectPatterns(rows)
}

func (r *PgPatternRepository) ActiveOverlapping(ctx context.Context, locticianID uuid.UUID, dayOfWeek int, from time.Time, until *time.Time) ([]*AvailabilityPattern, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patternColumns+`
		FROM availability_patterns
		WHERE loctician_id = $1
		  AND day_of_week = $2
		  AND active
		  AND ($4::date IS NULL OR effective_from <= $4)
		  AND (effective_until IS NULL OR effective_until >= $3)
	`, locticianID, dayOfWeek, from, until)
	if err != nil {
		return nil, err
	}
	return collectPatterns(rows)
}

func (r *PgPatternRepository) Deactivate(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE availability_patterns
		SET active = false, updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("deactivate patterns: %w", err)
	}
	return nil
}

func (r *PgPatternRepository) ListByLoctician(ctx context.Context, locticianID uuid.UUID, includeInactive bool) ([]*AvailabilityPattern, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patternColumns+`
		FROM availability_patterns
		WHERE loctician_id = $1
		  AND (active OR $2)
		ORDER BY day_of_week, effective_from
	`, locticianID, includeInactive)
	if err != nil {
		return nil, err
	}
	return collectPatterns(rows)
}

// Availability overrides

type PgOverrideRepository struct {
	pool *pgxpool.Pool
}

const overrideColumns = `id, loctician_id, date, is_available, start_minutes, end_minutes,
	reason, created_by, created_at, updated_at`

func scanOverride(row pgx.Row) (*AvailabilityOverride, error) {
	var (
		o          AvailabilityOverride
		start, end *int
	)
	err := row.Scan(
		&o.ID,
		&o.LocticianID,
		&o.Date,
		&o.IsAvailable,
		&start,
		&end,
		&o.Reason,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	o.StartTime = minutesToTimeOfDay(start)
	o.EndTime = minutesToTimeOfDay(end)
	return &o, nil
}

func minutesToTimeOfDay(m *int) *timeutil.TimeOfDay {
	if m == nil {
		return nil
	}
	t := timeutil.TimeOfDay(*m)
	return &t
}

func timeOfDayToMinutes(t *timeutil.TimeOfDay) *int {
	if t == nil {
		return nil
	}
	m := int(*t)
	return &m
}

func (r *PgOverrideRepository) Upsert(ctx context.Context, o *AvailabilityOverride) (bool, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_overrides
			(id, loctician_id, date, is_available, start_minutes, end_minutes,
			 reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (loctician_id, date) DO UPDATE SET
			is_available = EXCLUDED.is_available,
			start_minutes = EXCLUDED.start_minutes,
			end_minutes = EXCLUDED.end_minutes,
			reason = EXCLUDED.reason,
			updated_at = now()
		RETURNING `+overrideColumns+`, (xmax = 0) AS inserted
	`, o.ID, o.LocticianID, o.Date, o.IsAvailable,
		timeOfDayToMinutes(o.StartTime), timeOfDayToMinutes(o.EndTime), o.Reason, o.CreatedBy)

	var (
		saved      AvailabilityOverride
		start, end *int
		inserted   bool
	)
	err := row.Scan(
		&saved.ID, &saved.LocticianID, &saved.Date, &saved.IsAvailable,
		&start, &end, &saved.Reason, &saved.CreatedBy, &saved.CreatedAt, &saved.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return false, err
	}
	saved.StartTime = minutesToTimeOfDay(start)
	saved.EndTime = minutesToTimeOfDay(end)
	*o = saved
	return inserted, nil
}

func (r *PgOverrideRepository) GetForDate(ctx context.Context, locticianID uuid.UUID, date time.Time) (*AvailabilityOverride, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+overrideColumns+`
		FROM availability_overrides
		WHERE loctician_id = $1 AND date = $2
	`, locticianID, date)
	return scanOverride(row)
}

func (r *PgOverrideRepository) ListRange(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*AvailabilityOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+overrideColumns+`
		FROM availability_overrides
		WHERE loctician_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, locticianID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AvailabilityOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PgOverrideRepository) Delete(ctx context.Context, locticianID, id uuid.UUID) (*AvailabilityOverride, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM availability_overrides
		WHERE id = $1 AND loctician_id = $2
		RETURNING `+overrideColumns+`
	`, id, locticianID)
	return scanOverride(row)
}

func (r *PgOverrideRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_overrides
		WHERE date < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old overrides: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Calendar events

type PgEventRepository struct {
	pool *pgxpool.Pool
}

const eventColumns = `id, loctician_id, title, description, event_type, start_time, end_time,
	is_public, is_recurring, recurrence, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*CalendarEvent, error) {
	var (
		ev   CalendarEvent
		rule []byte
	)
	err := row.Scan(
		&ev.ID,
		&ev.LocticianID,
		&ev.Title,
		&ev.Description,
		&ev.Type,
		&ev.Start,
		&ev.End,
		&ev.Public,
		&ev.IsRecurring,
		&rule,
		&ev.CreatedBy,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if len(rule) > 0 {
		var r RecurrenceRule
		if err := json.Unmarshal(rule, &r); err != nil {
			return nil, fmt.Errorf("decode recurrence rule: %w", err)
		}
		ev.Recurrence = &r
	}
	return &ev, nil
}

func collectEvents(rows pgx.Rows) ([]*CalendarEvent, error) {
	defer rows.Close()
	var out []*CalendarEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func encodeRule(rule *RecurrenceRule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("encode recurrence rule: %w", err)
	}
	return data, nil
}

func (r *PgEventRepository) Create(ctx context.Context, ev *CalendarEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	rule, err := encodeRule(ev.Recurrence)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO calendar_events
			(id, loctician_id, title, description, event_type, start_time, end_time,
			 is_public, is_recurring, recurrence, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+eventColumns+`
	`, ev.ID, ev.LocticianID, ev.Title, ev.Description, ev.Type, ev.Start, ev.End,
		ev.Public, ev.IsRecurring, rule, ev.CreatedBy)

	created, err := scanEvent(row)
	if err != nil {
		return err
	}
	*ev = *created
	return nil
}

func (r *PgEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*CalendarEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE id = $1
	`, id)
	return scanEvent(row)
}

func (r *PgEventRepository) Update(ctx context.Context, ev *CalendarEvent) error {
	rule, err := encodeRule(ev.Recurrence)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE calendar_events
		SET title = $2,
		    description = $3,
		    event_type = $4,
		    start_time = $5,
		    end_time = $6,
		    is_public = $7,
		    is_recurring = $8,
		    recurrence = $9,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+eventColumns+`
	`, ev.ID, ev.Title, ev.Description, ev.Type, ev.Start, ev.End, ev.Public, ev.IsRecurring, rule)

	updated, err := scanEvent(row)
	if err != nil {
		return err
	}
	*ev = *updated
	return nil
}

func (r *PgEventRepository) Delete(ctx context.Context, locticianID, id uuid.UUID) (*CalendarEvent, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM calendar_events
		WHERE id = $1 AND loctician_id = $2
		RETURNING `+eventColumns+`
	`, id, locticianID)
	return scanEvent(row)
}

func (r *PgEventRepository) Candidates(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*CalendarEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE loctician_id = $1
		  AND ($4::uuid IS NULL OR id <> $4)
		  AND (
			(NOT is_recurring AND start_time < $3 AND end_time > $2)
			OR (is_recurring AND start_time < $3)
		  )
		ORDER BY start_time
	`, locticianID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (r *PgEventRepository) ListByLoctician(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*CalendarEvent, error) {
	return r.Candidates(ctx, locticianID, from, to, nil)
}

func (r *PgEventRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM calendar_events
		WHERE NOT is_recurring AND end_time < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete finished events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Bookings (read-only view into the booking subsystem)

type PgBookingRepository struct {
	pool *pgxpool.Pool
}

const bookingColumns = `id, number, loctician_id, customer_id, service_id, service_name,
	start_time, end_time, status`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID,
		&b.Number,
		&b.LocticianID,
		&b.CustomerID,
		&b.ServiceID,
		&b.ServiceName,
		&b.Start,
		&b.End,
		&b.Status,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*Booking, error) {
	defer rows.Close()
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PgBookingRepository) Overlapping(ctx context.Context, locticianID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE loctician_id = $1
		  AND status IN ('pending', 'confirmed', 'in_progress')
		  AND start_time < $3
		  AND end_time > $2
		  AND ($4::uuid IS NULL OR id <> $4)
		ORDER BY start_time
	`, locticianID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgBookingRepository) ListRange(ctx context.Context, locticianID uuid.UUID, from, to time.Time) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE loctician_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, locticianID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}
