// seed inserts test users into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tapsafe/auth-service/internal/infrastructure/postgres"
)

var seedEmails = []string{
	"seed@test.local",
	"second@test.local",
	"throttle-me@test.local",
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set — run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewUserRepository(pool)

	for _, email := range seedEmails {
		user, err := repo.FindOrCreate(ctx, email)
		if err != nil {
			log.Fatalf("upsert user %s: %v", email, err)
		}
		fmt.Printf("  %-28s %s\n", email, user.ID)
	}

	fmt.Println()
	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1 — request a magic link:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/auth/magic-link \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\"}'\n", seedEmails[0])
	fmt.Println()
	fmt.Println("  Step 2 — copy the token from the server log (ENV=local logs the email), then:")
	fmt.Println()
	fmt.Printf("    curl -s 'http://localhost:8080/auth/verify?email=%s&token=TOKEN'\n", seedEmails[0])
	fmt.Println("    # → {\"token\":\"eyJ...\"}")
	fmt.Println()
	fmt.Println("  Step 3 — see throttling kick in (4th request inside 15 minutes):")
	fmt.Println()
	fmt.Printf("    for i in 1 2 3 4; do\n")
	fmt.Printf("      curl -s -o /dev/null -w '%%{http_code}\\n' -X POST http://localhost:8080/auth/magic-link \\\n")
	fmt.Printf("        -H 'Content-Type: application/json' -d '{\"email\":\"%s\"}'\n", seedEmails[2])
	fmt.Printf("    done\n")
	fmt.Println("    # → 202 202 202 429")
}
