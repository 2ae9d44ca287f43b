// Package main seeds a SQLite ledger with development data.
//
// It creates a few platforms with stock, a batch of keys of each tier and,
// optionally, test users with starting balances. Existing platforms are left
// alone, so the tool can be re-run to top up stock.
//
// Usage:
//
//	DB_PATH=~/PointsBot/data/ledger.db go run ./cmd/seed
//	DB_PATH=~/PointsBot/data/ledger.db go run ./cmd/seed --create-users
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"

	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/store"
	"github.com/pointsbot/pointsbot-server/internal/store/sqlite"
)

const seedActor = "seed"

var (
	createUsers      = flag.Bool("create-users", false, "Create test users with starting balances")
	stockPerPlatform = flag.Int("stock", 10, "Stock items to add per platform")
	keysPerTier      = flag.Int("keys", 5, "Keys to generate per tier")
)

type seedPlatform struct {
	name  string
	kind  string
	price int64
}

var platforms = []seedPlatform{
	{name: "Netflix", kind: "cookie", price: 2},
	{name: "Disney Plus", kind: "account", price: 3},
	{name: "Crunchyroll", kind: "cookie", price: 1},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PointsBot/data/ledger.db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	logger := slog.New(slog.DiscardHandler)
	s, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	notifier := service.NopNotifier{}

	platformSvc := service.NewPlatformService(s, notifier, logger, store.RandomPick)
	keySvc := service.NewKeyService(s, notifier, logger, 8)
	userSvc := service.NewUserService(s, notifier, logger)

	for _, p := range platforms {
		seedPlatformStock(ctx, platformSvc, p)
	}

	for _, tier := range []struct {
		kind   string
		points int64
	}{{"standard", 5}, {"premium", 20}} {
		keys, err := keySvc.Generate(ctx, seedActor, service.GenerateKeysRequest{
			Count:  *keysPerTier,
			Kind:   tier.kind,
			Points: tier.points,
		})
		if err != nil {
			log.Fatalf("Failed to generate %s keys: %v", tier.kind, err)
		}
		fmt.Printf("Generated %d %s keys worth %d points:\n", len(keys), tier.kind, tier.points)
		for _, k := range keys {
			fmt.Printf("  %s\n", k.Code)
		}
	}

	if *createUsers {
		createTestUsers(ctx, userSvc)
	}

	fmt.Println("Done!")
}

func seedPlatformStock(ctx context.Context, svc *service.PlatformService, p seedPlatform) {
	_, err := svc.Create(ctx, seedActor, service.CreatePlatformRequest{Name: p.name, Kind: p.kind, Price: p.price})
	var derr *domainerrors.Error
	switch {
	case err == nil:
		fmt.Printf("Created platform %q (price %d)\n", p.name, p.price)
	case errors.As(err, &derr) && derr.Code == domainerrors.CodeAlreadyExists:
		fmt.Printf("Platform %q exists, adding stock\n", p.name)
	default:
		log.Fatalf("Failed to create platform %q: %v", p.name, err)
	}

	items := make([]string, 0, *stockPerPlatform)
	for range *stockPerPlatform {
		items = append(items, fakeItem(p))
	}
	stock, err := svc.AddStock(ctx, seedActor, p.name, items)
	if err != nil {
		log.Fatalf("Failed to add stock to %q: %v", p.name, err)
	}
	fmt.Printf("  %q now holds %d items\n", p.name, stock)
}

func fakeItem(p seedPlatform) string {
	if p.kind == "cookie" {
		return fmt.Sprintf("session=%016x; path=/", rand.Uint64())
	}
	return fmt.Sprintf("user%04d@example.com:pw%06d", rand.IntN(10000), rand.IntN(1000000))
}

func createTestUsers(ctx context.Context, svc *service.UserService) {
	testUsers := []struct {
		id       string
		name     string
		referrer string
		balance  int64
	}{
		{"1000001", "Alice", "", 25},
		{"1000002", "Bob", "1000001", 10},
		{"1000003", "Carol", "1000001", 0},
		{"1000004", "Dan", "", 3},
	}

	for _, u := range testUsers {
		res, err := svc.Register(ctx, service.RegisterRequest{ID: u.id, DisplayName: u.name, ReferrerID: u.referrer})
		if err != nil {
			log.Printf("Failed to register %s: %v", u.name, err)
			continue
		}
		if !res.Created {
			fmt.Printf("User %s already exists\n", u.name)
			continue
		}
		if u.balance > 0 {
			if _, err := svc.AdjustPoints(ctx, seedActor, u.id, u.balance); err != nil {
				log.Printf("Failed to grant points to %s: %v", u.name, err)
				continue
			}
		}
		fmt.Printf("Created user %s (%s) with %d points\n", u.name, u.id, u.balance)
	}
}
