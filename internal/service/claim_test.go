package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

func TestClaimService_LastItem(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", 20)
	f.addPlatform(t, "Netflix", 2, "alice@example.com:hunter2")

	result, err := f.claims.Claim(ctx, "u1", "netflix")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com:hunter2", result.Item)
	assert.Equal(t, "Netflix", result.Platform)
	assert.Equal(t, int64(2), result.Price)
	assert.Equal(t, int64(18), result.Balance)
	assert.Zero(t, result.Remaining)

	assert.Equal(t, int64(18), f.balance(t, "u1"))
	stock, err := f.platforms.Stock(ctx, "Netflix")
	require.NoError(t, err)
	assert.Empty(t, stock)

	events := f.notifier.ofKind(audit.KindItemClaimed)
	require.Len(t, events, 1)
	assert.Equal(t, int64(-2), events[0].Points)
	assert.Equal(t, int64(18), events[0].Balance)
	assert.Equal(t, "Netflix", events[0].Platform)
}

func TestClaimService_Preconditions(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addUser(t, "rich", 100)
	f.addUser(t, "poor", 1)
	f.addUser(t, "banned", 100)
	require.NoError(t, f.users.SetBanned(ctx, testOwner, "banned", true))
	f.addPlatform(t, "Spotify", 5, "item-1")
	f.addPlatform(t, "Empty", 5)

	tests := []struct {
		name     string
		userID   string
		platform string
		wantErr  error
	}{
		{"unknown platform", "rich", "Hulu", domainerrors.ErrPlatformNotFound},
		{"insufficient funds", "poor", "Spotify", domainerrors.ErrInsufficientFunds},
		{"stock empty", "rich", "Empty", domainerrors.ErrStockEmpty},
		{"insufficient funds before stock empty", "poor", "Empty", domainerrors.ErrInsufficientFunds},
		{"banned user", "banned", "Spotify", domainerrors.ErrForbidden},
		{"blank platform", "rich", "  ", domainerrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.claims.Claim(ctx, tt.userID, tt.platform)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing moved.
	assert.Equal(t, int64(1), f.balance(t, "poor"))
	assert.Equal(t, int64(100), f.balance(t, "rich"))
	stock, err := f.platforms.Stock(ctx, "Spotify")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, stock)
}

func TestClaimService_ConcurrentClaimsDrainPoolOnce(t *testing.T) {
	f := newLedgerFixture(t)

	const (
		claimants = 20
		items     = 7
	)
	stock := make([]string, items)
	for i := range stock {
		stock[i] = fmt.Sprintf("account-%d", i)
	}
	f.addPlatform(t, "Disney", 3, stock...)
	for i := range claimants {
		f.addUser(t, fmt.Sprintf("c%d", i), 10)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		got    = map[string]string{}
		empty  int
		others []error
	)
	for i := range claimants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := fmt.Sprintf("c%d", i)
			result, err := f.claims.Claim(context.Background(), userID, "Disney")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				got[result.Item] = userID
			case domainerrors.Is(err, domainerrors.ErrStockEmpty):
				empty++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Len(t, got, items, "every item handed out exactly once")
	assert.Equal(t, claimants-items, empty)

	remaining, err := f.platforms.Stock(context.Background(), "Disney")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	var spent int64
	for i := range claimants {
		balance := f.balance(t, fmt.Sprintf("c%d", i))
		assert.GreaterOrEqual(t, balance, int64(0))
		spent += 10 - balance
	}
	assert.Equal(t, int64(items*3), spent, "only successful claims are charged")
}

func TestClaimService_ConcurrentClaimsNeverOverdraw(t *testing.T) {
	f := newLedgerFixture(t)
	f.addUser(t, "u1", 10)
	stock := make([]string, 10)
	for i := range stock {
		stock[i] = fmt.Sprintf("cookie-%d", i)
	}
	f.addPlatform(t, "Crunchyroll", 4, stock...)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.claims.Claim(context.Background(), "u1", "Crunchyroll")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domainerrors.ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, successes)
	assert.Equal(t, int64(2), f.balance(t, "u1"))

	remaining, err := f.platforms.Stock(context.Background(), "Crunchyroll")
	require.NoError(t, err)
	assert.Len(t, remaining, 8, "only paid claims remove stock")
}
