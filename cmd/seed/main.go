// Command main seeds a development database with moderation settings, a sample
// blacklist and demo listings.
package main

import (
	"context"
	"flag"
	"log"

	"marketgate/internal/config"
	"marketgate/internal/database"
	"marketgate/internal/observability"
	"marketgate/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of sellers to create")
	numListings := flag.Int("listings", 40, "Number of unmoderated listings to create")
	shouldClean := flag.Bool("clean", false, "Delete existing workflow data first")
	randSeed := flag.Int64("seed", 0, "Random seed for generated content (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() && *shouldClean {
		log.Fatal("Refusing to clean a production database")
	}

	// Bulk inserts would flood the log with one record per row.
	observability.SetStoreLogging(false)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, *randSeed)
	if err := s.Run(context.Background(), seed.Options{
		NumUsers:    *numUsers,
		NumListings: *numListings,
		ShouldClean: *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}
