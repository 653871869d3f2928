// Command migrate applies the event store and outbox schema to the
// database named by POSTGRES_DSN. It is idempotent and safe to run on
// every deploy.
package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerevents/internal/config"
	"ledgerevents/internal/schema"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("migrate: connect: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("migrate: ping: %v", err)
	}

	if err := schema.Apply(ctx, pool); err != nil {
		log.Fatalf("migrate: apply schema: %v", err)
	}

	log.Println("migrate: schema up to date")
}
