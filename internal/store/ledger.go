// Package store defines the persistence interface for the points ledger.
package store

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
)

// Ledger defines every persistence operation the engines and admin services use.
// Each composite method runs as one transaction: its effects are all visible or none are.
type Ledger interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Users
	UpsertUser(ctx context.Context, user *domain.User) (*domain.User, bool, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	SetUserBanned(ctx context.Context, id string, banned bool) error
	GetBalance(ctx context.Context, userID string) (int64, error)
	AdjustBalance(ctx context.Context, userID string, delta int64) (int64, error)

	// Admins
	UpsertAdmin(ctx context.Context, admin *domain.Admin) error
	GetAdmin(ctx context.Context, userID string) (*domain.Admin, error)
	SetAdminBanned(ctx context.Context, userID string, banned bool) error
	RemoveAdmin(ctx context.Context, userID string) error
	ListAdmins(ctx context.Context) ([]*domain.Admin, error)

	// Keys
	CreateKeys(ctx context.Context, keys []*domain.Key) error
	GetKey(ctx context.Context, code string) (*domain.Key, error)
	ListKeys(ctx context.Context, filter KeyFilter) ([]*domain.Key, error)
	RedeemKey(ctx context.Context, code, userID string, at time.Time) (*RedeemResult, error)

	// Platforms and stock
	CreatePlatform(ctx context.Context, platform *domain.Platform) error
	GetPlatform(ctx context.Context, name string) (*domain.Platform, error)
	ListPlatforms(ctx context.Context) ([]*domain.Platform, error)
	SetPlatformPrice(ctx context.Context, name string, price int64) (*domain.Platform, error)
	RenamePlatform(ctx context.Context, name, newName string) (*domain.Platform, error)
	DeletePlatform(ctx context.Context, name string) error
	AppendStock(ctx context.Context, name string, items []string) (int, error)
	GetStock(ctx context.Context, name string) ([]string, error)
	RemoveStockItem(ctx context.Context, name string, pick StockPicker) (string, error)
	ClaimStockItem(ctx context.Context, name, userID string, pick StockPicker) (*ClaimResult, error)

	// Referrals
	CreditReferral(ctx context.Context, referredID string, bonus int64, at time.Time) (*ReferralResult, error)
	GetReferral(ctx context.Context, referredID string) (*domain.Referral, error)

	// Settings
	InitSettings(ctx context.Context, defaults *domain.Settings) error
	GetSettings(ctx context.Context) (*domain.Settings, error)
	SetReferralBonus(ctx context.Context, bonus int64) (*domain.Settings, error)
	SetRequiredChannels(ctx context.Context, channels []string) (*domain.Settings, error)

	// Reports
	CreateReport(ctx context.Context, report *domain.Report) error
	GetReport(ctx context.Context, id string) (*domain.Report, error)
	ListReports(ctx context.Context, status domain.ReportStatus) ([]*domain.Report, error)
	ClaimReport(ctx context.Context, id, adminID string, at time.Time) (*domain.Report, error)
	ResolveReport(ctx context.Context, id, adminID string, at time.Time) (*domain.Report, error)

	// Stats
	Stats(ctx context.Context) (*domain.Stats, error)
}

// StockPicker chooses which of n stock items to hand out. It must return a value in [0, n).
type StockPicker func(n int) int

// RandomPick picks uniformly among the current items.
func RandomPick(n int) int {
	return rand.IntN(n)
}

// PickOrDefault returns pick, or RandomPick when pick is nil.
func PickOrDefault(pick StockPicker) StockPicker {
	if pick == nil {
		return RandomPick
	}
	return pick
}

// KeyFilter narrows ListKeys.
type KeyFilter struct {
	Claimed *bool          // nil lists both
	Kind    domain.KeyKind // empty lists all kinds
	Limit   int            // defaults to 100, capped at 1000
}

// Normalize applies the listing defaults.
func (f *KeyFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
}

// RedeemResult is the outcome of a successful key redemption.
type RedeemResult struct {
	Key     *domain.Key
	Balance int64 // Claimant's balance after the credit
}

// ClaimResult is the outcome of a successful stock claim.
type ClaimResult struct {
	Item      string
	Platform  *domain.Platform // Price and stock as of the claim; Stock is the remaining count
	Balance   int64            // Claimant's balance after the debit
	ClaimedAt time.Time
}

// ReferralResult is the outcome of one CreditReferral call.
type ReferralResult struct {
	Outcome         domain.ReferralOutcome
	Referral        *domain.Referral // nil unless a referrer exists for this user
	Bonus           int64            // Amount credited by this call
	ReferrerBalance int64            // Only set when Outcome is credited
	NewlyVerified   bool             // The user's verified flag changed in this call
}

// BalanceBounds returns the range a balance must lie in for delta to apply
// without going below zero or past math.MaxInt64. ok is false when no balance
// can take delta.
func BalanceBounds(delta int64) (floor, ceiling int64, ok bool) {
	switch {
	case delta == math.MinInt64:
		return 0, 0, false
	case delta < 0:
		return -delta, math.MaxInt64, true
	default:
		return 0, math.MaxInt64 - delta, true
	}
}

// ErrBalanceOverflow is returned when a credit would push a balance past the
// largest representable value.
var ErrBalanceOverflow = ErrInvalidInput.WithMessage("balance would exceed the maximum")
