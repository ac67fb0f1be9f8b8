package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/ramadhanik/account-service/config"
	pginfra "github.com/ramadhanik/account-service/internal/infrastructure/postgres"
	"github.com/ramadhanik/account-service/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	email := "admin@example.com"
	password := "changeme123"
	name := "Administrator"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	repo := pginfra.NewAccountRepository(pool)
	id, err := repo.EnsureAdmin(ctx, email, hash, name)
	if err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}
	fmt.Printf("seeded admin account: id=%d email=%s password=%s\n", id, email, password)
}
