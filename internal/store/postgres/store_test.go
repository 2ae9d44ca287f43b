package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// newTestStore connects to LEDGER_TEST_POSTGRES_DSN and empties every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LEDGER_TEST_POSTGRES_DSN not set")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s, err := Open(dsn, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.db.Exec(`TRUNCATE reports, referrals, stock_items, platforms, keys, admins, settings, users CASCADE`)
	require.NoError(t, err)
	return s
}

func seedUser(t *testing.T, s *Store, id string, points int64) {
	t.Helper()
	ctx := context.Background()
	_, _, err := s.UpsertUser(ctx, &domain.User{ID: id})
	require.NoError(t, err)
	if points > 0 {
		_, err = s.AdjustBalance(ctx, id, points)
		require.NoError(t, err)
	}
}

func seedPlatform(t *testing.T, s *Store, name string, price int64, items ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.CreatePlatform(ctx, &domain.Platform{
		ID: "plt-" + domain.PlatformKey(name), Name: name, Kind: domain.PlatformAccount,
		Price: price, CreatedAt: now, UpdatedAt: now,
	}))
	if len(items) > 0 {
		_, err := s.AppendStock(ctx, name, items)
		require.NoError(t, err)
	}
}

func TestClaimScenario(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "u1", 20)
	seedPlatform(t, s, "Netflix", 2, "acct-1")

	res, err := s.ClaimStockItem(context.Background(), "netflix", "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", res.Item)
	assert.Equal(t, int64(18), res.Balance)
	assert.Equal(t, 0, res.Platform.Stock)

	_, err = s.ClaimStockItem(context.Background(), "netflix", "u1", nil)
	assert.ErrorIs(t, err, store.ErrStockEmpty)
}

func TestConcurrentClaims(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const stock, claimants = 4, 12
	items := make([]string, stock)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	seedPlatform(t, s, "Prime", 1, items...)
	for i := range claimants {
		seedUser(t, s, fmt.Sprintf("u%d", i), 5)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seen  = map[string]bool{}
		empty int
	)
	for i := range claimants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.ClaimStockItem(ctx, "Prime", fmt.Sprintf("u%d", i), nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				assert.False(t, seen[res.Item], "duplicate item %s", res.Item)
				seen[res.Item] = true
			case errors.Is(err, store.ErrStockEmpty):
				empty++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, seen, stock)
	assert.Equal(t, claimants-stock, empty)
}

func TestRedeemAndReferral(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "referrer", 0)
	_, _, err := s.UpsertUser(ctx, &domain.User{ID: "referred", PendingReferrer: "referrer"})
	require.NoError(t, err)

	require.NoError(t, s.CreateKeys(ctx, []*domain.Key{{
		Code: "NKEY-ABC123", Kind: domain.KeyStandard, Points: 15, CreatedAt: time.Now(),
	}}))

	res, err := s.RedeemKey(ctx, "NKEY-ABC123", "referred", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.Balance)

	_, err = s.RedeemKey(ctx, "NKEY-ABC123", "referred", time.Now())
	assert.ErrorIs(t, err, store.ErrKeyClaimed)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreditReferral(ctx, "referred", 7, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balance, err := s.GetBalance(ctx, "referrer")
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)
}
