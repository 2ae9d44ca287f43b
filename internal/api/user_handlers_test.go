package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/service"
)

func (ts *apiTestServer) addKey(t *testing.T, code string, points int64) {
	t.Helper()
	err := ts.ledger.CreateKeys(context.Background(), []*domain.Key{{
		Code:      code,
		Kind:      domain.KeyStandard,
		Points:    points,
		CreatedBy: testOwner,
		CreatedAt: time.Now(),
	}})
	require.NoError(t, err)
}

func TestRegisterUser(t *testing.T) {
	ts := setupAPITestServer(t)

	resp := ts.api.Post("/api/v1/users", ts.botAuth, map[string]any{"id": "u1", "display_name": "Ann"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decode[service.RegisterResult](t, resp.Body.Bytes())
	assert.True(t, first.Data.Created)
	assert.Equal(t, "Ann", first.Data.User.DisplayName)

	resp = ts.api.Post("/api/v1/users", ts.botAuth, map[string]any{"id": "u1", "display_name": "Annie"})
	require.Equal(t, http.StatusOK, resp.Code)
	again := decode[service.RegisterResult](t, resp.Body.Bytes())
	assert.False(t, again.Data.Created)
	assert.Equal(t, "Annie", again.Data.User.DisplayName)

	profile := ts.api.Get("/api/v1/users/u1", ts.botAuth)
	require.Equal(t, http.StatusOK, profile.Code)
	env := decode[UserProfileResponse](t, profile.Body.Bytes())
	assert.Equal(t, "u1", env.Data.ID)
	assert.Equal(t, domain.ReferralUnreferred, env.Data.ReferralState)

	missing := ts.api.Get("/api/v1/users/ghost", ts.botAuth)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestRedeemKey(t *testing.T) {
	ts := setupAPITestServer(t)
	ts.registerUser(t, "u1", "")
	ts.addKey(t, "NKEY-ABC123", 15)

	resp := ts.api.Post("/api/v1/users/u1/redeem", ts.botAuth, map[string]any{"code": " nkey-abc123 "})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decode[service.RedeemResult](t, resp.Body.Bytes())
	assert.Equal(t, "NKEY-ABC123", env.Data.Code)
	assert.Equal(t, int64(15), env.Data.Points)
	assert.Equal(t, int64(15), env.Data.Balance)

	again := ts.api.Post("/api/v1/users/u1/redeem", ts.botAuth, map[string]any{"code": "NKEY-ABC123"})
	assert.Equal(t, http.StatusConflict, again.Code)
	assert.Equal(t, "KEY_ALREADY_CLAIMED", decode[any](t, again.Body.Bytes()).Code)

	unknown := ts.api.Post("/api/v1/users/u1/redeem", ts.botAuth, map[string]any{"code": "NKEY-NOPE"})
	assert.Equal(t, http.StatusNotFound, unknown.Code)
	assert.Equal(t, "KEY_NOT_FOUND", decode[any](t, unknown.Body.Bytes()).Code)

	balance := ts.api.Get("/api/v1/users/u1/balance", ts.botAuth)
	require.Equal(t, http.StatusOK, balance.Code)
	assert.Equal(t, int64(15), decode[BalanceResponse](t, balance.Body.Bytes()).Data.Balance)

	redeemed, err := ts.events.Recent(context.Background(), audit.Query{Kind: audit.KindKeyRedeemed})
	require.NoError(t, err)
	require.Len(t, redeemed, 1)
	assert.Equal(t, "u1", redeemed[0].UserID)
}

func TestClaimItem(t *testing.T) {
	ts := setupAPITestServer(t)
	ts.registerUser(t, "u1", "")
	ts.registerUser(t, "poor", "")
	ts.grant(t, "u1", 20)

	create := ts.api.Post("/api/v1/admin/platforms", ts.botAuth, ts.ownerActor,
		map[string]any{"name": "Disney Plus", "kind": "account", "price": 2})
	require.Equal(t, http.StatusOK, create.Code, create.Body.String())

	stock := ts.api.Post("/api/v1/admin/platforms/Disney%20Plus/stock", ts.botAuth, ts.ownerActor,
		map[string]any{"text": "mail1:pass1\r\n\r\n"})
	require.Equal(t, http.StatusOK, stock.Code, stock.Body.String())
	assert.Equal(t, 1, decode[StockCountResponse](t, stock.Body.Bytes()).Data.Stock)

	broke := ts.api.Post("/api/v1/users/poor/claim", ts.botAuth, map[string]any{"platform": "disney plus"})
	assert.Equal(t, http.StatusPaymentRequired, broke.Code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", decode[any](t, broke.Body.Bytes()).Code)

	resp := ts.api.Post("/api/v1/users/u1/claim", ts.botAuth, map[string]any{"platform": "DISNEY PLUS"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	claim := decode[service.ClaimResult](t, resp.Body.Bytes())
	assert.Equal(t, "mail1:pass1", claim.Data.Item)
	assert.Equal(t, int64(2), claim.Data.Price)
	assert.Equal(t, int64(18), claim.Data.Balance)
	assert.Zero(t, claim.Data.Remaining)

	empty := ts.api.Post("/api/v1/users/u1/claim", ts.botAuth, map[string]any{"platform": "Disney Plus"})
	assert.Equal(t, http.StatusConflict, empty.Code)
	assert.Equal(t, "STOCK_EMPTY", decode[any](t, empty.Body.Bytes()).Code)

	unknown := ts.api.Post("/api/v1/users/u1/claim", ts.botAuth, map[string]any{"platform": "Hulu"})
	assert.Equal(t, http.StatusNotFound, unknown.Code)
	assert.Equal(t, "PLATFORM_NOT_FOUND", decode[any](t, unknown.Body.Bytes()).Code)

	list := ts.api.Get("/api/v1/platforms", ts.botAuth)
	require.Equal(t, http.StatusOK, list.Code)
	platforms := decode[ListPlatformsResponse](t, list.Body.Bytes()).Data.Platforms
	require.Len(t, platforms, 1)
	assert.Equal(t, "Disney Plus", platforms[0].Name)
	assert.Zero(t, platforms[0].Stock)
}

func TestVerifyCreditsReferrer(t *testing.T) {
	ts := setupAPITestServer(t)
	ts.registerUser(t, "referrer", "")
	ts.registerUser(t, "newbie", "referrer")

	ts.member = false
	pending := ts.api.Post("/api/v1/users/newbie/verify", ts.botAuth)
	require.Equal(t, http.StatusOK, pending.Code, pending.Body.String())
	assert.Equal(t, domain.ReferralOutcomePending, decode[service.ReferralResult](t, pending.Body.Bytes()).Data.Outcome)

	ts.member = true
	resp := ts.api.Post("/api/v1/users/newbie/verify", ts.botAuth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	credited := decode[service.ReferralResult](t, resp.Body.Bytes())
	assert.Equal(t, domain.ReferralOutcomeCredited, credited.Data.Outcome)
	assert.Equal(t, "referrer", credited.Data.ReferrerID)
	assert.Equal(t, int64(3), credited.Data.Bonus)
	assert.Equal(t, int64(3), credited.Data.ReferrerBalance)

	again := ts.api.Post("/api/v1/users/newbie/verify", ts.botAuth)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, domain.ReferralOutcomeAlreadyCredited, decode[service.ReferralResult](t, again.Body.Bytes()).Data.Outcome)

	referral := ts.api.Get("/api/v1/users/newbie/referral", ts.botAuth)
	require.Equal(t, http.StatusOK, referral.Code)
	assert.Equal(t, "referrer", decode[domain.Referral](t, referral.Body.Bytes()).Data.ReferrerID)

	balance := ts.api.Get("/api/v1/users/referrer/balance", ts.botAuth)
	assert.Equal(t, int64(3), decode[BalanceResponse](t, balance.Body.Bytes()).Data.Balance)
}

func TestCreateReport(t *testing.T) {
	ts := setupAPITestServer(t)
	ts.registerUser(t, "u1", "")
	create := ts.api.Post("/api/v1/admin/platforms", ts.botAuth, ts.ownerActor, map[string]any{"name": "Netflix"})
	require.Equal(t, http.StatusOK, create.Code, create.Body.String())

	resp := ts.api.Post("/api/v1/users/u1/reports", ts.botAuth,
		map[string]any{"platform": "netflix", "message": "password changed"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	report := decode[ReportResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Netflix", report.Data.Platform)
	assert.Equal(t, domain.ReportOpen, report.Data.Status)

	unknown := ts.api.Post("/api/v1/users/u1/reports", ts.botAuth, map[string]any{"platform": "Hulu"})
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}
