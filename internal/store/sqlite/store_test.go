package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestUser registers a user and sets its balance directly.
func insertTestUser(t *testing.T, s *Store, userID string, points int64) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := s.UpsertUser(ctx, &domain.User{ID: userID, DisplayName: "user " + userID}); err != nil {
		t.Fatalf("insertTestUser(%s): %v", userID, err)
	}
	if points > 0 {
		if _, err := s.AdjustBalance(ctx, userID, points); err != nil {
			t.Fatalf("insertTestUser(%s) balance: %v", userID, err)
		}
	}
}

// insertTestPlatform creates a platform with the given stock.
func insertTestPlatform(t *testing.T, s *Store, name string, price int64, items ...string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	p := &domain.Platform{
		ID:        "plt-" + domain.PlatformKey(name),
		Name:      name,
		Kind:      domain.PlatformAccount,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreatePlatform(ctx, p); err != nil {
		t.Fatalf("insertTestPlatform(%s): %v", name, err)
	}
	if len(items) > 0 {
		if _, err := s.AppendStock(ctx, name, items); err != nil {
			t.Fatalf("insertTestPlatform(%s) stock: %v", name, err)
		}
	}
}

func expectStoreErr(t *testing.T, err error, want *store.Error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %T: %v", want, err, err)
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{
		"users", "admins", "keys", "platforms", "stock_items",
		"referrals", "settings", "reports",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()

	if err := s2.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestWithTx_CancelledBeforeStart(t *testing.T) {
	s := newTestStore(t)
	insertTestUser(t, s, "u1", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.AdjustBalance(ctx, "u1", 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	balance, err := s.GetBalance(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 10 {
		t.Errorf("balance: got %d, want 10", balance)
	}
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/ledger.db")
	for _, want := range []string{"file:/tmp/ledger.db?", "_txlock=immediate", "busy_timeout%2810000%29"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn %q missing %q", got, want)
		}
	}
}

