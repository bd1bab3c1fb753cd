package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"delivery-ops-service/internal/adapters/ordersource"
	"delivery-ops-service/internal/adapters/repositories"
	"delivery-ops-service/internal/config"
	"delivery-ops-service/internal/platform/db"
	"delivery-ops-service/internal/platform/obs"
)

// dbtool applies the Postgres schema and optionally seeds orders from the
// fixture file.
func main() {
	seed := flag.Bool("seed", true, "import orders from the fixture file")
	flag.Parse()

	log := obs.NewLogger(os.Getenv("ENV"))

	cfg, err := config.Load(log)
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pg, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	log.Info("Initializing database schema...")
	if err := repositories.InitSchema(ctx, pg); err != nil {
		log.Error("schema initialization failed", "error", err)
		os.Exit(1)
	}
	log.Info("Schema ready.")

	if !*seed {
		return
	}

	log.Info("Seeding orders...", "path", cfg.FixturePath)
	fixture, err := ordersource.LoadFixture(cfg.FixturePath)
	if err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	if err := repositories.NewPostgresOrderStore(pg, log).Upsert(ctx, fixture.Orders); err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	log.Info("Seeding complete.", "orders", len(fixture.Orders))
}
