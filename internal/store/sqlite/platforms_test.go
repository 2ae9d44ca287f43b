package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

func TestClaimStockItem_Scenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 20)
	insertTestPlatform(t, s, "Netflix", 2, "acct-1")

	res, err := s.ClaimStockItem(ctx, "Netflix", "u1", nil)
	if err != nil {
		t.Fatalf("ClaimStockItem: %v", err)
	}
	if res.Item != "acct-1" {
		t.Errorf("item: got %q, want acct-1", res.Item)
	}
	if res.Balance != 18 {
		t.Errorf("balance: got %d, want 18", res.Balance)
	}
	if res.Platform.Stock != 0 {
		t.Errorf("remaining stock: got %d, want 0", res.Platform.Stock)
	}

	stock, err := s.GetStock(ctx, "netflix")
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	if len(stock) != 0 {
		t.Errorf("stock after claim: %v", stock)
	}
}

func TestClaimStockItem_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "poor", 1)
	insertTestUser(t, s, "rich", 100)
	insertTestPlatform(t, s, "Spotify", 5, "sp-1")
	insertTestPlatform(t, s, "Hulu", 5)

	_, err := s.ClaimStockItem(ctx, "Nope", "rich", nil)
	expectStoreErr(t, err, store.ErrNotFound)

	_, err = s.ClaimStockItem(ctx, "Spotify", "poor", nil)
	expectStoreErr(t, err, store.ErrInsufficientFunds)

	_, err = s.ClaimStockItem(ctx, "Hulu", "rich", nil)
	expectStoreErr(t, err, store.ErrStockEmpty)

	// Failed claims leave both sides untouched.
	if b, _ := s.GetBalance(ctx, "poor"); b != 1 {
		t.Errorf("poor balance: got %d, want 1", b)
	}
	if b, _ := s.GetBalance(ctx, "rich"); b != 100 {
		t.Errorf("rich balance: got %d, want 100", b)
	}
	stock, _ := s.GetStock(ctx, "Spotify")
	if len(stock) != 1 {
		t.Errorf("spotify stock: got %d, want 1", len(stock))
	}
}

func TestClaimStockItem_InsufficientBeforeEmpty(t *testing.T) {
	s := newTestStore(t)
	insertTestUser(t, s, "poor", 0)
	insertTestPlatform(t, s, "Empty", 5)

	_, err := s.ClaimStockItem(context.Background(), "Empty", "poor", nil)
	expectStoreErr(t, err, store.ErrInsufficientFunds)
}

func TestClaimStockItem_UsesPicker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 10)
	insertTestPlatform(t, s, "Disney", 0, "d-0", "d-1", "d-2")

	last := func(n int) int { return n - 1 }
	res, err := s.ClaimStockItem(ctx, "Disney", "u1", last)
	if err != nil {
		t.Fatalf("ClaimStockItem: %v", err)
	}
	if res.Item != "d-2" {
		t.Errorf("item: got %q, want d-2", res.Item)
	}
	if res.Balance != 10 {
		t.Errorf("free claim changed balance to %d", res.Balance)
	}
}

func TestClaimStockItem_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const (
		stockSize = 5
		claimants = 20
	)
	items := make([]string, stockSize)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	insertTestPlatform(t, s, "Prime", 3, items...)
	for i := range claimants {
		insertTestUser(t, s, userID(i), 10)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		got    = make(map[string]string)
		empty  int
		others []error
	)
	for i := range claimants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.ClaimStockItem(ctx, "Prime", userID(i), nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				if prev, dup := got[res.Item]; dup {
					t.Errorf("item %s handed to %s and %s", res.Item, prev, userID(i))
				}
				got[res.Item] = userID(i)
			case errors.Is(err, store.ErrStockEmpty):
				empty++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if len(got) != stockSize {
		t.Errorf("successes: got %d, want %d", len(got), stockSize)
	}
	if empty != claimants-stockSize {
		t.Errorf("stock-empty failures: got %d, want %d", empty, claimants-stockSize)
	}

	stock, err := s.GetStock(ctx, "Prime")
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	if len(stock) != 0 {
		t.Errorf("final stock: got %d, want 0", len(stock))
	}

	// Only winners paid.
	winners := make(map[string]bool, len(got))
	for _, user := range got {
		winners[user] = true
	}
	for i := range claimants {
		b, err := s.GetBalance(ctx, userID(i))
		if err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
		want := int64(10)
		if winners[userID(i)] {
			want = 7
		}
		if b != want {
			t.Errorf("%s balance: got %d, want %d", userID(i), b, want)
		}
	}
}

func TestClaimStockItem_ConcurrentSameUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 5)
	insertTestPlatform(t, s, "Max", 2, "m-1", "m-2", "m-3", "m-4")

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ClaimStockItem(ctx, "Max", "u1", nil)
			if err != nil && !errors.Is(err, store.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// 5 points buy exactly two items at 2 each.
	balance, _ := s.GetBalance(ctx, "u1")
	if balance != 1 {
		t.Errorf("balance: got %d, want 1", balance)
	}
	stock, _ := s.GetStock(ctx, "Max")
	if len(stock) != 2 {
		t.Errorf("stock: got %d, want 2", len(stock))
	}
}

func TestPlatformLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestPlatform(t, s, "Netflix", 2)

	dup := &domain.Platform{ID: "plt-x", Name: " NETFLIX ", Kind: domain.PlatformCookie, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	expectStoreErr(t, s.CreatePlatform(ctx, dup), store.ErrAlreadyExists)

	n, err := s.AppendStock(ctx, "netflix", []string{"a", "b", "b"})
	if err != nil {
		t.Fatalf("AppendStock: %v", err)
	}
	if n != 3 {
		t.Errorf("stock count: got %d, want 3", n)
	}

	p, err := s.SetPlatformPrice(ctx, "NETFLIX", 7)
	if err != nil {
		t.Fatalf("SetPlatformPrice: %v", err)
	}
	if p.Price != 7 || p.Stock != 3 {
		t.Errorf("after price change: %+v", p)
	}

	p, err = s.RenamePlatform(ctx, "Netflix", "Netflix Premium")
	if err != nil {
		t.Fatalf("RenamePlatform: %v", err)
	}
	if p.Name != "Netflix Premium" {
		t.Errorf("name: got %q", p.Name)
	}
	_, err = s.GetPlatform(ctx, "Netflix")
	expectStoreErr(t, err, store.ErrNotFound)

	insertTestPlatform(t, s, "Hulu", 1)
	_, err = s.RenamePlatform(ctx, "Hulu", "netflix premium")
	expectStoreErr(t, err, store.ErrAlreadyExists)

	item, err := s.RemoveStockItem(ctx, "Netflix Premium", func(int) int { return 0 })
	if err != nil {
		t.Fatalf("RemoveStockItem: %v", err)
	}
	if item != "a" {
		t.Errorf("removed: got %q, want a", item)
	}

	platforms, err := s.ListPlatforms(ctx)
	if err != nil {
		t.Fatalf("ListPlatforms: %v", err)
	}
	if len(platforms) != 2 {
		t.Fatalf("platforms: got %d, want 2", len(platforms))
	}
	if platforms[0].Name != "Hulu" || platforms[1].Stock != 2 {
		t.Errorf("listing: %+v %+v", platforms[0], platforms[1])
	}

	if err := s.DeletePlatform(ctx, "netflix premium"); err != nil {
		t.Fatalf("DeletePlatform: %v", err)
	}
	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM stock_items`).Scan(&orphans); err != nil {
		t.Fatalf("count stock: %v", err)
	}
	if orphans != 0 {
		t.Errorf("stock not cascaded: %d rows left", orphans)
	}
	expectStoreErr(t, s.DeletePlatform(ctx, "netflix premium"), store.ErrNotFound)
}

func TestAppendStock_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendStock(ctx, "Nope", []string{"x"})
	expectStoreErr(t, err, store.ErrNotFound)

	insertTestPlatform(t, s, "Real", 1)
	_, err = s.AppendStock(ctx, "Real", nil)
	expectStoreErr(t, err, store.ErrInvalidInput)

	_, err = s.RemoveStockItem(ctx, "Real", nil)
	expectStoreErr(t, err, store.ErrStockEmpty)
}
