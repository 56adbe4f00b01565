package main

import (
	"context"
	"fmt"
	"os"

	"github.com/openfleet/openfleet/internal/config"
	"github.com/openfleet/openfleet/internal/session"
	"github.com/openfleet/openfleet/internal/store/postgres"
)

// One-shot sweep of expired sessions, for cron-style scheduling alongside
// the in-process hourly sweep.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sessions := session.NewService(postgres.NewSessionRepository(db), cfg.Session.Lifetime)

	n, err := sessions.CleanupExpired(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deactivated %d expired sessions\n", n)
}
