// Command migrate brings the database schema up to date and seeds the
// fixed reference rows (roles, default categories). Safe to run
// repeatedly and from several instances at once.
package main

import (
	"context"
	"log"
	"time"

	"github.com/ndemidenko/pressroom/internal/config"
	"github.com/ndemidenko/pressroom/internal/db"
	"github.com/ndemidenko/pressroom/internal/logging"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Open(ctx, configuration)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	if err := db.Init(ctx, database, configuration); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	logger.InfoContext(ctx, "schema migrated and seeds applied",
		"roles", configuration.SeedRoles,
		"categories", configuration.SeedCategories,
	)
}
