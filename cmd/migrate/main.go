// migrate applies the embedded schema migrations to the configured database.
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/L1oneSs/AuthTemplate/internal/config"
	"github.com/L1oneSs/AuthTemplate/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Print("schema already at target version")
			return
		}
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("migrations applied (%s)", *direction)
}
