package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

func createTestReport(t *testing.T, s *Store, id, userID string) {
	t.Helper()
	r := &domain.Report{
		ID:        id,
		UserID:    userID,
		Platform:  "Netflix",
		Message:   "password changed",
		CreatedAt: time.Now(),
	}
	if err := s.CreateReport(context.Background(), r); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
}

func TestReports_ClaimOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 0)
	createTestReport(t, s, "rpt-1", "u1")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   []string
		losses int
	)
	for _, admin := range []string{"a1", "a2", "a3", "a4"} {
		wg.Add(1)
		go func(admin string) {
			defer wg.Done()
			_, err := s.ClaimReport(ctx, "rpt-1", admin, time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, admin)
			case errors.Is(err, store.ErrReportTaken):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(admin)
	}
	wg.Wait()

	if len(wins) != 1 || losses != 3 {
		t.Fatalf("wins=%v losses=%d, want one winner", wins, losses)
	}

	r, err := s.GetReport(ctx, "rpt-1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if r.ClaimedBy != wins[0] || r.Status() != domain.ReportClaimed {
		t.Errorf("report: %+v", r)
	}

	// Only the claimer resolves it.
	other := "a1"
	if wins[0] == other {
		other = "a2"
	}
	_, err = s.ResolveReport(ctx, "rpt-1", other, time.Now())
	expectStoreErr(t, err, store.ErrReportTaken)

	r, err = s.ResolveReport(ctx, "rpt-1", wins[0], time.Now())
	if err != nil {
		t.Fatalf("ResolveReport: %v", err)
	}
	if r.Status() != domain.ReportResolved {
		t.Errorf("status: got %q", r.Status())
	}
}

func TestReports_ResolveUnclaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 0)
	createTestReport(t, s, "rpt-1", "u1")
	createTestReport(t, s, "rpt-2", "u1")

	r, err := s.ResolveReport(ctx, "rpt-1", "a1", time.Now())
	if err != nil {
		t.Fatalf("ResolveReport: %v", err)
	}
	if r.ClaimedBy != "a1" || r.ResolvedAt == nil {
		t.Errorf("report: %+v", r)
	}

	_, err = s.ClaimReport(ctx, "rpt-1", "a2", time.Now())
	expectStoreErr(t, err, store.ErrReportTaken)

	open, err := s.ListReports(ctx, domain.ReportOpen)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(open) != 1 || open[0].ID != "rpt-2" {
		t.Errorf("open reports: %+v", open)
	}

	resolved, err := s.ListReports(ctx, domain.ReportResolved)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(resolved) != 1 {
		t.Errorf("resolved reports: got %d, want 1", len(resolved))
	}

	_, err = s.ClaimReport(ctx, "rpt-404", "a1", time.Now())
	expectStoreErr(t, err, store.ErrNotFound)

	_, err = s.ListReports(ctx, domain.ReportStatus("bogus"))
	expectStoreErr(t, err, store.ErrInvalidInput)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSettings(ctx)
	expectStoreErr(t, err, store.ErrNotFound)

	defaults := &domain.Settings{ReferralBonus: 5, RequiredChannels: []string{"@news"}}
	if err := s.InitSettings(ctx, defaults); err != nil {
		t.Fatalf("InitSettings: %v", err)
	}

	st, err := s.SetReferralBonus(ctx, 12)
	if err != nil {
		t.Fatalf("SetReferralBonus: %v", err)
	}
	if st.ReferralBonus != 12 || len(st.RequiredChannels) != 1 {
		t.Errorf("settings: %+v", st)
	}

	// A second InitSettings keeps what admins changed.
	if err := s.InitSettings(ctx, defaults); err != nil {
		t.Fatalf("InitSettings again: %v", err)
	}
	st, err = s.SetRequiredChannels(ctx, []string{"@a", "@b"})
	if err != nil {
		t.Fatalf("SetRequiredChannels: %v", err)
	}
	if st.ReferralBonus != 12 {
		t.Errorf("bonus reset to %d", st.ReferralBonus)
	}
	if len(st.RequiredChannels) != 2 || st.RequiredChannels[1] != "@b" {
		t.Errorf("channels: %v", st.RequiredChannels)
	}

	_, err = s.SetReferralBonus(ctx, -1)
	expectStoreErr(t, err, store.ErrInvalidInput)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "u1", 20)
	insertTestUser(t, s, "u2", 5)
	if err := s.SetUserBanned(ctx, "u2", true); err != nil {
		t.Fatalf("SetUserBanned: %v", err)
	}
	insertTestPlatform(t, s, "Netflix", 2, "a", "b")
	insertTestPlatform(t, s, "Hulu", 2)
	createTestKey(t, s, "NKEY-S1", 5)
	createTestKey(t, s, "NKEY-S2", 5)
	if _, err := s.RedeemKey(ctx, "NKEY-S1", "u1", time.Now()); err != nil {
		t.Fatalf("RedeemKey: %v", err)
	}
	createTestReport(t, s, "rpt-1", "u1")

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Users != 2 || st.BannedUsers != 1 || st.PointsHeld != 30 {
		t.Errorf("user stats: %+v", st)
	}
	if st.KeysTotal != 2 || st.KeysClaimed != 1 {
		t.Errorf("key stats: %+v", st)
	}
	if st.OpenReports != 1 || st.Referrals != 0 {
		t.Errorf("report/referral stats: %+v", st)
	}
	if st.StockByPlatform["Netflix"] != 2 || st.StockByPlatform["Hulu"] != 0 {
		t.Errorf("stock stats: %v", st.StockByPlatform)
	}
}
