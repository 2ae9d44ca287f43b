// Package main generates redeemable keys straight into a ledger store and
// prints their codes, one per line.
//
// Usage:
//
//	DB_PATH=~/PointsBot/data/ledger.db go run ./cmd/keygen -count 20 -points 5
//	DB_DRIVER=postgres DB_DSN=postgres://... go run ./cmd/keygen -kind premium -points 50
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/id"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/store"
	"github.com/pointsbot/pointsbot-server/internal/store/postgres"
	"github.com/pointsbot/pointsbot-server/internal/store/sqlite"
)

func main() {
	count := flag.Int("count", 10, "Number of keys to generate (1-500)")
	kind := flag.String("kind", "standard", "Key tier (standard, premium)")
	points := flag.Int64("points", 1, "Points each key is worth")
	length := flag.Int("length", id.DefaultCodeLength, "Random characters per code")
	actor := flag.String("actor", "keygen", "Actor recorded on the keys")
	driver := flag.String("driver", envOr("DB_DRIVER", config.DriverSQLite), "Store driver (sqlite, postgres)")
	path := flag.String("path", envOr("DB_PATH", os.ExpandEnv("$HOME/PointsBot/data/ledger.db")), "SQLite database file")
	dsn := flag.String("dsn", os.Getenv("DB_DSN"), "Postgres connection string")
	flag.Parse()

	logger := slog.New(slog.DiscardHandler)

	ledger, err := openStore(*driver, *path, *dsn, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer ledger.Close()

	keys := service.NewKeyService(ledger, service.NopNotifier{}, logger, *length)
	generated, err := keys.Generate(context.Background(), *actor, service.GenerateKeysRequest{
		Count:  *count,
		Kind:   *kind,
		Points: *points,
	})
	if err != nil {
		log.Fatalf("Failed to generate keys: %v", err)
	}

	fmt.Fprintf(os.Stderr, "generated %d %s keys worth %d points\n", len(generated), *kind, *points)
	for _, k := range generated {
		fmt.Println(k.Code)
	}
}

func openStore(driver, path, dsn string, logger *slog.Logger) (store.Ledger, error) {
	switch driver {
	case config.DriverSQLite:
		return sqlite.Open(path, logger)
	case config.DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres driver needs -dsn or DB_DSN")
		}
		return postgres.Open(dsn, logger)
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
