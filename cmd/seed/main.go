package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serviq/booking-engine/internal/availability"
	"github.com/serviq/booking-engine/internal/db"
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

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	proIDs, err := seedProfessionals(context.Background(), pool, 100)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	if err := seedAvailabilities(context.Background(), pool, proIDs); err != nil {
		log.Fatalf("seed availabilities: %v", err)
	}
	if err := seedClients(context.Background(), pool, 9000); err != nil {
		log.Fatalf("seed clients: %v", err)
	}

	log.Println("seed complete")
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

	ids := make([]uuid.UUID, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()
		payoutAccount := "acct_" + gofakeit.LetterN(16)

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, email, payout_account, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, email, payoutAccount)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("professionals seeded")
	return ids, nil
}

func seedAvailabilities(ctx context.Context, pool *pgxpool.Pool, proIDs []uuid.UUID) error {
	log.Printf("seeding availabilities for %d professionals", len(proIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range proIDs {
		weekly := randomWeekly()
		payload, err := json.Marshal(weekly)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO availabilities (professional_id, schedule, updated_at)
			VALUES ($1, $2, now())
		`, id, payload)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availabilities seeded")
	return nil
}

// randomWeekly builds a plausible working week: weekday mornings plus, for
// most professionals, an afternoon block. Weekends stay empty.
func randomWeekly() availability.Weekly {
	var weekly availability.Weekly

	morningStarts := []string{"08:00", "08:30", "09:00"}
	afternoonEnds := []string{"17:00", "17:30", "18:00"}

	for d := availability.Monday; d <= availability.Friday; d++ {
		ranges := []availability.TimeRange{
			{Start: morningStarts[gofakeit.Number(0, len(morningStarts)-1)], End: "12:00"},
		}
		if gofakeit.Number(0, 9) < 8 {
			ranges = append(ranges, availability.TimeRange{
				Start: "14:00",
				End:   afternoonEnds[gofakeit.Number(0, len(afternoonEnds)-1)],
			})
		}
		weekly.Days[d] = ranges
	}

	return weekly
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d clients", count)

	const batchSize = 500

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
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO clients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("clients seeded: %d/%d", end, count)
	}

	return nil
}
