package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strandloc/booking-calendar/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	locticians, err := seedLocticians(context.Background(), pool, 12)
	if err != nil {
		log.Fatalf("seed locticians: %v", err)
	}
	if err := seedPatterns(context.Background(), pool, locticians); err != nil {
		log.Fatalf("seed patterns: %v", err)
	}
	if err := seedOverrides(context.Background(), pool, locticians); err != nil {
		log.Fatalf("seed overrides: %v", err)
	}
	if err := seedEvents(context.Background(), pool, locticians); err != nil {
		log.Fatalf("seed events: %v", err)
	}
	if err := seedBookings(context.Background(), pool, locticians, 400); err != nil {
		log.Fatalf("seed bookings: %v", err)
	}

	log.Println("seed complete")
}

func seedLocticians(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d locticians", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()

		_, err := tx.Exec(ctx, `
			INSERT INTO locticians (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, email)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("locticians seeded")
	return ids, nil
}

// seedPatterns gives every loctician a Tuesday to Saturday week with slightly
// varied hours, effective from the start of the current year.
func seedPatterns(ctx context.Context, pool *pgxpool.Pool, locticians []uuid.UUID) error {
	log.Println("seeding availability patterns")

	effectiveFrom := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, locticianID := range locticians {
		startHour := gofakeit.Number(8, 10)
		endHour := startHour + gofakeit.Number(7, 9)

		for day := 2; day <= 6; day++ { // Tuesday..Saturday
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_patterns
					(id, loctician_id, day_of_week, start_minutes, end_minutes,
					 effective_from, effective_until, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, NULL, true, now(), now())
			`, uuid.New(), locticianID, day, startHour*60, endHour*60, effectiveFrom)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability patterns seeded")
	return nil
}

func seedOverrides(ctx context.Context, pool *pgxpool.Pool, locticians []uuid.UUID) error {
	log.Println("seeding availability overrides")

	reasons := []string{"Holiday", "Course day", "Private appointment", "Family visit"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, locticianID := range locticians {
		for i := 0; i < gofakeit.Number(1, 4); i++ {
			date := time.Now().AddDate(0, 0, gofakeit.Number(3, 60)).Truncate(24 * time.Hour)
			available := gofakeit.Bool()

			var startMin, endMin *int
			if available {
				s, e := 10*60, 14*60
				startMin, endMin = &s, &e
			}
			reason := reasons[gofakeit.Number(0, len(reasons)-1)]

			_, err := tx.Exec(ctx, `
				INSERT INTO availability_overrides
					(id, loctician_id, date, is_available, start_minutes, end_minutes,
					 reason, created_by, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $2, now(), now())
				ON CONFLICT (loctician_id, date) DO NOTHING
			`, uuid.New(), locticianID, date, available, startMin, endMin, reason)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability overrides seeded")
	return nil
}

// seedEvents gives every loctician a recurring weekday lunch break plus a few
// one-off events.
func seedEvents(ctx context.Context, pool *pgxpool.Pool, locticians []uuid.UUID) error {
	log.Println("seeding calendar events")

	types := []string{"meeting", "training", "personal"}

	lunchRule, err := json.Marshal(map[string]any{
		"frequency": "weekly",
		"interval":  1,
		"by_day":    []int{2, 3, 4, 5, 6},
	})
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, locticianID := range locticians {
		lunchStart := time.Now().Truncate(24 * time.Hour).Add(12 * time.Hour)
		_, err := tx.Exec(ctx, `
			INSERT INTO calendar_events
				(id, loctician_id, title, description, event_type, start_time, end_time,
				 is_public, is_recurring, recurrence, created_by, created_at, updated_at)
			VALUES ($1, $2, 'Lunch break', NULL, 'break', $3, $4, false, true, $5, $2, now(), now())
		`, uuid.New(), locticianID, lunchStart, lunchStart.Add(30*time.Minute), lunchRule)
		if err != nil {
			return err
		}

		for i := 0; i < gofakeit.Number(1, 3); i++ {
			start := time.Now().AddDate(0, 0, gofakeit.Number(1, 30)).Truncate(time.Hour)
			_, err := tx.Exec(ctx, `
				INSERT INTO calendar_events
					(id, loctician_id, title, description, event_type, start_time, end_time,
					 is_public, is_recurring, recurrence, created_by, created_at, updated_at)
				VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, false, NULL, $2, now(), now())
			`, uuid.New(), locticianID, gofakeit.JobTitle(), types[gofakeit.Number(0, len(types)-1)],
				start, start.Add(time.Duration(gofakeit.Number(1, 3))*time.Hour), gofakeit.Bool())
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("calendar events seeded")
	return nil
}

func seedBookings(ctx context.Context, pool *pgxpool.Pool, locticians []uuid.UUID, count int) error {
	log.Printf("seeding %d bookings", count)

	services := []string{"Retwist", "Starter locs", "Loc repair", "Interlocking", "Style and wrap", "Deep cleanse"}
	statuses := []string{"pending", "confirmed", "confirmed", "confirmed", "completed", "cancelled"}

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			locticianID := locticians[gofakeit.Number(0, len(locticians)-1)]
			day := time.Now().AddDate(0, 0, gofakeit.Number(-10, 30)).Truncate(24 * time.Hour)
			start := day.Add(time.Duration(gofakeit.Number(9, 15)) * time.Hour)
			duration := time.Duration(gofakeit.Number(1, 3)) * time.Hour

			_, err := tx.Exec(ctx, `
				INSERT INTO bookings
					(id, number, loctician_id, customer_id, service_id, service_name,
					 start_time, end_time, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT DO NOTHING
			`, uuid.New(), fmt.Sprintf("BK-%d-%04d", time.Now().Year(), i+1),
				locticianID, uuid.New(), uuid.New(),
				services[gofakeit.Number(0, len(services)-1)],
				start, start.Add(duration),
				statuses[gofakeit.Number(0, len(statuses)-1)])
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("bookings seeded: %d/%d", end, count)
	}

	log.Println("bookings seeded")
	return nil
}
