package main

import (
	"context"
	"log"
	"time"

	"github.com/hemovida/donation-scheduling/internal/config"
	"github.com/hemovida/donation-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	applied, err := db.NewMigrator(pool, "migrations").Up(ctx)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("applied %d migration(s)", applied)
}
