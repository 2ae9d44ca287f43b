package sqlite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

func createTestKey(t *testing.T, s *Store, code string, points int64) {
	t.Helper()
	key := &domain.Key{
		Code:      code,
		Kind:      domain.KeyStandard,
		Points:    points,
		CreatedBy: "admin",
		CreatedAt: time.Now(),
	}
	if err := s.CreateKeys(context.Background(), []*domain.Key{key}); err != nil {
		t.Fatalf("CreateKeys(%s): %v", code, err)
	}
}

func TestRedeemKey_Twice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 0)
	createTestKey(t, s, "NKEY-ABC123", 15)

	res, err := s.RedeemKey(ctx, "NKEY-ABC123", "u1", time.Now())
	if err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if res.Key.Points != 15 {
		t.Errorf("credited: got %d, want 15", res.Key.Points)
	}
	if res.Balance != 15 {
		t.Errorf("balance: got %d, want 15", res.Balance)
	}
	if res.Key.ClaimedBy != "u1" || res.Key.ClaimedAt == nil {
		t.Errorf("claim fields not set: %+v", res.Key)
	}

	_, err = s.RedeemKey(ctx, "NKEY-ABC123", "u1", time.Now())
	expectStoreErr(t, err, store.ErrKeyClaimed)

	balance, err := s.GetBalance(ctx, "u1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 15 {
		t.Errorf("balance after second redeem: got %d, want 15", balance)
	}
}

func TestRedeemKey_NotFound(t *testing.T) {
	s := newTestStore(t)
	insertTestUser(t, s, "u1", 0)

	_, err := s.RedeemKey(context.Background(), "NKEY-NOPE", "u1", time.Now())
	expectStoreErr(t, err, store.ErrNotFound)
}

func TestRedeemKey_UnknownUserLeavesKeyUnclaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestKey(t, s, "NKEY-GHOST1", 5)

	_, err := s.RedeemKey(ctx, "NKEY-GHOST1", "ghost", time.Now())
	expectStoreErr(t, err, store.ErrNotFound)

	k, err := s.GetKey(ctx, "NKEY-GHOST1")
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if k.IsClaimed() {
		t.Error("key claimed although the credit failed")
	}
}

func TestRedeemKey_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestKey(t, s, "NKEY-RACE01", 15)

	const attempts = 16
	for i := range attempts {
		insertTestUser(t, s, userID(i), 0)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		claimed   int
	)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RedeemKey(ctx, "NKEY-RACE01", userID(i), time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrKeyClaimed):
				claimed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes: got %d, want 1", successes)
	}
	if claimed != attempts-1 {
		t.Errorf("already-claimed failures: got %d, want %d", claimed, attempts-1)
	}

	var total int64
	for i := range attempts {
		b, err := s.GetBalance(ctx, userID(i))
		if err != nil {
			t.Fatalf("GetBalance: %v", err)
		}
		total += b
	}
	if total != 15 {
		t.Errorf("total credited: got %d, want 15", total)
	}
}

func TestCreateKeys_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestKey(t, s, "NKEY-DUP001", 5)

	batch := []*domain.Key{
		{Code: "NKEY-NEW001", Kind: domain.KeyStandard, Points: 5, CreatedAt: time.Now()},
		{Code: "NKEY-DUP001", Kind: domain.KeyStandard, Points: 5, CreatedAt: time.Now()},
	}
	err := s.CreateKeys(ctx, batch)
	expectStoreErr(t, err, store.ErrAlreadyExists)

	// The batch is all-or-nothing.
	_, err = s.GetKey(ctx, "NKEY-NEW001")
	expectStoreErr(t, err, store.ErrNotFound)
}

func TestListKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 0)

	now := time.Now()
	batch := []*domain.Key{
		{Code: "NKEY-A", Kind: domain.KeyStandard, Points: 5, CreatedAt: now},
		{Code: "NKEY-B", Kind: domain.KeyStandard, Points: 5, CreatedAt: now.Add(time.Second)},
		{Code: "PKEY-C", Kind: domain.KeyPremium, Points: 50, CreatedAt: now.Add(2 * time.Second)},
	}
	if err := s.CreateKeys(ctx, batch); err != nil {
		t.Fatalf("CreateKeys: %v", err)
	}
	if _, err := s.RedeemKey(ctx, "NKEY-A", "u1", now); err != nil {
		t.Fatalf("RedeemKey: %v", err)
	}

	all, err := s.ListKeys(ctx, store.KeyFilter{})
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all keys: got %d, want 3", len(all))
	}
	if all[0].Code != "PKEY-C" {
		t.Errorf("newest first: got %s", all[0].Code)
	}

	unclaimed := false
	open, err := s.ListKeys(ctx, store.KeyFilter{Claimed: &unclaimed})
	if err != nil {
		t.Fatalf("ListKeys unclaimed: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("unclaimed keys: got %d, want 2", len(open))
	}

	premium, err := s.ListKeys(ctx, store.KeyFilter{Kind: domain.KeyPremium})
	if err != nil {
		t.Fatalf("ListKeys premium: %v", err)
	}
	if len(premium) != 1 || premium[0].Points != 50 {
		t.Errorf("premium keys: got %+v", premium)
	}
}

func userID(i int) string {
	return fmt.Sprintf("user-%02d", i)
}

func TestRedeemKey_OverflowLeavesKeyUnclaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", math.MaxInt64-2)
	createTestKey(t, s, "NKEY-BIG001", 5)

	_, err := s.RedeemKey(ctx, "NKEY-BIG001", "u1", time.Now())
	expectStoreErr(t, err, store.ErrInvalidInput)

	k, err := s.GetKey(ctx, "NKEY-BIG001")
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if k.IsClaimed() {
		t.Error("key claimed although the credit failed")
	}
	balance, _ := s.GetBalance(ctx, "u1")
	if balance != math.MaxInt64-2 {
		t.Errorf("balance: got %d, want %d", balance, int64(math.MaxInt64-2))
	}
}
