package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store/sqlite"
	"github.com/pointsbot/pointsbot-server/internal/verify"
)

const testOwner = "owner-1"

// recordingNotifier keeps every event it is handed.
type recordingNotifier struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingNotifier) Notify(e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) ofKind(kind audit.Kind) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ledgerFixture wires every service to one temporary SQLite ledger.
type ledgerFixture struct {
	store    *sqlite.Store
	notifier *recordingNotifier

	// member is what the membership checker answers; checkErr, when set, is
	// returned instead.
	member   atomic.Bool
	checkErr atomic.Pointer[error]
	checks   atomic.Int32

	keys      *KeyService
	claims    *ClaimService
	referrals *ReferralService
	users     *UserService
	platforms *PlatformService
	admins    *AdminService
	reports   *ReportService
	settings  *SettingsService
	stats     *StatsService
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() }) //nolint:errcheck // Test cleanup

	f := &ledgerFixture{store: s, notifier: &recordingNotifier{}}
	checker := verify.CheckerFunc(func(context.Context, string) (bool, error) {
		f.checks.Add(1)
		if errp := f.checkErr.Load(); errp != nil {
			return false, *errp
		}
		return f.member.Load(), nil
	})

	f.settings = NewSettingsService(s, f.notifier, logger, domain.Settings{ReferralBonus: 1})
	require.NoError(t, f.settings.Init(context.Background()))

	f.keys = NewKeyService(s, f.notifier, logger, 0)
	f.claims = NewClaimService(s, f.notifier, logger, nil)
	f.referrals = NewReferralService(s, f.settings, checker, f.notifier, logger)
	f.users = NewUserService(s, f.notifier, logger)
	f.platforms = NewPlatformService(s, f.notifier, logger, nil)
	f.admins = NewAdminService(s, f.notifier, logger, []string{testOwner})
	f.reports = NewReportService(s, f.notifier, logger)
	f.stats = NewStatsService(s, logger)
	return f
}

// addUser registers a user with the given balance.
func (f *ledgerFixture) addUser(t *testing.T, userID string, points int64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.Register(ctx, RegisterRequest{ID: userID, DisplayName: "user " + userID})
	require.NoError(t, err)
	if points > 0 {
		_, err = f.users.AdjustPoints(ctx, testOwner, userID, points)
		require.NoError(t, err)
	}
}

// addPlatform creates a platform with the given price and stock.
func (f *ledgerFixture) addPlatform(t *testing.T, name string, price int64, items ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.platforms.Create(ctx, testOwner, CreatePlatformRequest{Name: name, Price: price})
	require.NoError(t, err)
	if len(items) > 0 {
		_, err = f.platforms.AddStock(ctx, testOwner, name, items)
		require.NoError(t, err)
	}
}

// addKey stores one unclaimed key with a fixed code.
func (f *ledgerFixture) addKey(t *testing.T, code string, points int64) {
	t.Helper()
	err := f.store.CreateKeys(context.Background(), []*domain.Key{{
		Code:      code,
		Kind:      domain.KeyStandard,
		Points:    points,
		CreatedBy: testOwner,
		CreatedAt: time.Now(),
	}})
	require.NoError(t, err)
}

func (f *ledgerFixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	balance, err := f.users.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}
