// seed creates an initial account for local development or first deployment.
// Idempotent: exits cleanly if the email is already registered.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/L1oneSs/AuthTemplate/internal/config"
	"github.com/L1oneSs/AuthTemplate/internal/db"
	"github.com/L1oneSs/AuthTemplate/internal/security"
	userdomain "github.com/L1oneSs/AuthTemplate/internal/user/domain"
	userrepo "github.com/L1oneSs/AuthTemplate/internal/user/repository"
)

func main() {
	email := flag.String("email", "dev@example.com", "Email for the seeded account")
	username := flag.String("username", "dev", "Username for the seeded account")
	password := flag.String("password", "password123", "Password for the seeded account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	users := userrepo.NewPostgresRepository(pool)
	existing, err := users.GetByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("seed already applied (%s exists), skipping", *email)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(*password))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := &userdomain.User{
		Email:        *email,
		Username:     *username,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := user.Validate(); err != nil {
		log.Fatalf("validate: %v", err)
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("create user: %v", err)
	}
	log.Printf("seeded user %s (id %d)", user.Email, user.ID)
}
