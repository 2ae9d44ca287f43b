package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

func TestReportService_Lifecycle(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", 0)
	f.addPlatform(t, "Netflix", 2)

	report, err := f.reports.Create(ctx, CreateReportRequest{UserID: "u1", Platform: "netflix", Message: " password changed "})
	require.NoError(t, err)
	assert.Equal(t, "Netflix", report.Platform)
	assert.Equal(t, "password changed", report.Message)
	assert.Equal(t, domain.ReportOpen, report.Status())

	claimed, err := f.reports.Claim(ctx, testOwner, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportClaimed, claimed.Status())

	_, err = f.reports.Resolve(ctx, "other-admin", report.ID)
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	resolved, err := f.reports.Resolve(ctx, testOwner, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportResolved, resolved.Status())

	open, err := f.reports.List(ctx, domain.ReportOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	_, err = f.reports.List(ctx, "lost")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestReportService_CreateErrors(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", 0)

	_, err := f.reports.Create(ctx, CreateReportRequest{UserID: "u1", Platform: "Hulu"})
	assert.ErrorIs(t, err, domainerrors.ErrPlatformNotFound)

	_, err = f.reports.Create(ctx, CreateReportRequest{UserID: "ghost", Platform: "Hulu"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = f.reports.Claim(ctx, testOwner, "report-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestReportService_ConcurrentClaimOneWinner(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addUser(t, "u1", 0)
	f.addPlatform(t, "Netflix", 2)
	report, err := f.reports.Create(ctx, CreateReportRequest{UserID: "u1", Platform: "Netflix"})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adminID := fmt.Sprintf("admin-%d", i)
			_, err := f.reports.Claim(ctx, adminID, report.ID)
			if err != nil {
				assert.ErrorIs(t, err, domainerrors.ErrConflict)
				return
			}
			mu.Lock()
			winners = append(winners, adminID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	got, err := f.reports.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], got.ClaimedBy)
}
