package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tunewave.org/internal/auth"
	"tunewave.org/internal/migrate"
	"tunewave.org/internal/store/pg"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("TUNEWAVE_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", "ops/migrations/sql", "Path to SQL migrations")
		seedsPath      = flag.String("seeds", "ops/migrations/seeds", "Path to SQL seeds")

		// bootstrap-admin flags
		username    = flag.String("username", "admin", "bootstrap admin login name")
		password    = flag.String("password", "", "bootstrap admin password")
		displayName = flag.String("display-name", "Administrator", "bootstrap admin display name")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or TUNEWAVE_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|bootstrap-admin]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := pg.Open(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), *migrationsPath, *seedsPath)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "bootstrap-admin":
		err = bootstrapAdmin(ctx, store, *username, *password, *displayName)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

// bootstrapAdmin creates the first administrator so a fresh deployment has
// a way to sign in. Fails if the login name is already taken.
func bootstrapAdmin(ctx context.Context, store *pg.Store, username, password, displayName string) error {
	if password == "" {
		return fmt.Errorf("bootstrap-admin requires -password")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	account := &auth.Account{
		Username:     strings.ToLower(strings.TrimSpace(username)),
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	if err := store.Create(ctx, account); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("created admin account %s (%s)", account.Username, account.ID)
	return nil
}
