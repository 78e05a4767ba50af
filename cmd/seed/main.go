package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemovida/donation-scheduling/internal/db"
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

	branchIDs, err := seedBranches(context.Background(), pool, 12)
	if err != nil {
		log.Fatalf("seed branches: %v", err)
	}
	if err := seedCampaigns(context.Background(), pool, branchIDs, 25); err != nil {
		log.Fatalf("seed campaigns: %v", err)
	}
	if err := seedDonors(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed donors: %v", err)
	}

	log.Println("seed complete")
}

func seedBranches(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d branches", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Company() + " Blood Center"
		city := gofakeit.City()
		state := gofakeit.StateAbr()

		_, err := tx.Exec(ctx, `
			INSERT INTO branches (id, name, city, state, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, now(), now())
		`, id, name, city, state)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("branches seeded")
	return ids, nil
}

func seedCampaigns(ctx context.Context, pool *pgxpool.Pool, branchIDs []uuid.UUID, count int) error {
	log.Printf("seeding %d campaigns", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		branchID := branchIDs[gofakeit.Number(0, len(branchIDs)-1)]
		name := gofakeit.Slogan()
		target := float64(gofakeit.Number(5, 100))
		start := time.Now().AddDate(0, 0, -gofakeit.Number(0, 30))
		end := start.AddDate(0, gofakeit.Number(1, 6), 0)

		_, err := tx.Exec(ctx, `
			INSERT INTO campaigns (id, branch_id, name, target_liters, collected_liters, active, start_date, end_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, true, $5, $6, now(), now())
		`, id, branchID, name, target, start, end)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("campaigns seeded")
	return nil
}

func seedDonors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d donors", count)

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
			// prefix keeps emails unique across the batch
			email := fmt.Sprintf("%d.%s", i, gofakeit.Email())
			// bias toward the eligible 16-69 band but include edges
			birth := gofakeit.DateRange(
				time.Now().AddDate(-75, 0, 0),
				time.Now().AddDate(-15, 0, 0),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO donors (id, name, email, birth_date, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, birth)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("donors seeded: %d/%d", end, count)
	}

	log.Println("donors seeded")
	return nil
}
