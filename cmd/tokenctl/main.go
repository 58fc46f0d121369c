package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"pixelforge/internal/adapter/repo"
)

// tokenctl stores or clears a provider bearer token without going through the
// HTTP API. Useful for bootstrapping a fresh deployment.
func main() {
	var (
		providerFlag string
		tokenFlag    string
		clearFlag    bool
	)
	flag.StringVar(&providerFlag, "provider", "huggingface", "provider to configure (huggingface, video, gemini)")
	flag.StringVar(&tokenFlag, "token", "", "bearer token (falls back to PROVIDER_TOKEN env)")
	flag.BoolVar(&clearFlag, "clear", false, "remove the stored token")
	flag.Parse()

	_ = godotenv.Load()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		fmt.Fprintln(os.Stderr, "provider is required")
		os.Exit(1)
	}

	token := strings.TrimSpace(tokenFlag)
	if token == "" && !clearFlag {
		token = strings.TrimSpace(os.Getenv("PROVIDER_TOKEN"))
	}
	if token == "" && !clearFlag {
		fmt.Fprintln(os.Stderr, "token is required via -token or PROVIDER_TOKEN (or pass -clear)")
		os.Exit(1)
	}
	if clearFlag {
		token = ""
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	credentials := repo.NewCredentialRepository(pool)
	if err := credentials.SetToken(ctx, provider, token); err != nil {
		fmt.Fprintf(os.Stderr, "store token: %v\n", err)
		os.Exit(1)
	}
	if token == "" {
		fmt.Printf("cleared token for %s\n", provider)
		return
	}
	fmt.Printf("stored token for %s\n", provider)
}
