package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/store"
	"github.com/pointsbot/pointsbot-server/internal/verify"
)

// ReferralService pays referrers once their referred user passes the
// membership check.
type ReferralService struct {
	store    store.Ledger
	settings *SettingsService
	checker  verify.Checker
	notifier Notifier
	logger   *slog.Logger
}

// NewReferralService creates a new referral service.
func NewReferralService(
	store store.Ledger,
	settings *SettingsService,
	checker verify.Checker,
	notifier Notifier,
	logger *slog.Logger,
) *ReferralService {
	return &ReferralService{
		store:    store,
		settings: settings,
		checker:  checker,
		notifier: notifier,
		logger:   logger,
	}
}

// ReferralResult is returned by Credit and Verify.
type ReferralResult struct {
	UserID          string                 `json:"user_id"`
	Outcome         domain.ReferralOutcome `json:"outcome"`
	ReferrerID      string                 `json:"referrer_id,omitempty"`
	Bonus           int64                  `json:"bonus"`                      // Amount credited by this call
	ReferrerBalance int64                  `json:"referrer_balance,omitempty"` // Set when Outcome is credited
}

// Verify asks the membership checker about referredID and credits the referral
// when the check passes. A checker error counts as a failed check. Users whose
// referral is already credited are answered without a check.
func (s *ReferralService) Verify(ctx context.Context, referredID string) (*ReferralResult, error) {
	user, err := s.store.GetUser(ctx, referredID)
	if err != nil {
		return nil, storeError(err, "get user", domainerrors.NotFound("user not found"))
	}
	if user.ReferralState() == domain.ReferralCredited {
		return credited(user), nil
	}

	passed, err := s.checker.IsMember(ctx, referredID)
	if err != nil {
		s.logger.Warn("membership check failed, treating as not joined",
			"user_id", referredID,
			"error", err,
		)
		passed = false
	}
	return s.Credit(ctx, referredID, passed)
}

// Credit resolves referredID's referral given the outcome of the gating check.
//
// A credited referral is terminal and always yields AlreadyCredited.
// Otherwise a failed check changes nothing and yields Pending. A passed check, in one
// transaction, records the referral, pays the referrer the bonus configured at
// this moment and marks the user verified. A referral recorded earlier is
// reported as AlreadyCredited, which is a success. A user without a pending
// referrer is only marked verified.
func (s *ReferralService) Credit(ctx context.Context, referredID string, passed bool) (*ReferralResult, error) {
	user, err := s.store.GetUser(ctx, referredID)
	if err != nil {
		return nil, storeError(err, "get user", domainerrors.NotFound("user not found"))
	}
	if user.Banned {
		return nil, domainerrors.Forbidden("banned users cannot complete a referral")
	}
	if user.ReferralState() == domain.ReferralCredited {
		return credited(user), nil
	}

	if !passed {
		return &ReferralResult{
			UserID:     referredID,
			Outcome:    domain.ReferralOutcomePending,
			ReferrerID: user.PendingReferrer,
		}, nil
	}

	bonus, err := s.settings.ReferralBonus(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.store.CreditReferral(ctx, referredID, bonus, time.Now())
	if errors.Is(err, store.ErrAlreadyReferred) {
		return s.alreadyCredited(ctx, referredID)
	}
	if err != nil {
		return nil, storeError(err, "credit referral", domainerrors.NotFound("user not found"))
	}

	out := &ReferralResult{
		UserID:          referredID,
		Outcome:         result.Outcome,
		Bonus:           result.Bonus,
		ReferrerBalance: result.ReferrerBalance,
	}
	if result.Referral != nil {
		out.ReferrerID = result.Referral.ReferrerID
	}

	switch result.Outcome {
	case domain.ReferralOutcomeCredited:
		s.logger.Info("referral credited",
			"user_id", referredID,
			"referrer_id", out.ReferrerID,
			"bonus", out.Bonus,
			"balance", out.ReferrerBalance,
		)
		event := audit.NewEvent(audit.KindReferralCredited)
		event.UserID = out.ReferrerID
		event.Points = out.Bonus
		event.Balance = out.ReferrerBalance
		s.notifier.Notify(event.With("referred_id", referredID))
	case domain.ReferralOutcomeVerified:
		if !result.NewlyVerified {
			break
		}
		s.logger.Info("user verified", "user_id", referredID)
		event := audit.NewEvent(audit.KindUserVerified)
		event.UserID = referredID
		s.notifier.Notify(event)
	}

	return out, nil
}

// credited reports a user whose referral resolved earlier.
func credited(user *domain.User) *ReferralResult {
	return &ReferralResult{
		UserID:     user.ID,
		Outcome:    domain.ReferralOutcomeAlreadyCredited,
		ReferrerID: user.ReferredBy,
	}
}

// alreadyCredited reports a referral another caller recorded first.
func (s *ReferralService) alreadyCredited(ctx context.Context, referredID string) (*ReferralResult, error) {
	out := &ReferralResult{UserID: referredID, Outcome: domain.ReferralOutcomeAlreadyCredited}
	referral, err := s.store.GetReferral(ctx, referredID)
	if err != nil {
		return nil, storeError(err, "get referral", nil)
	}
	out.ReferrerID = referral.ReferrerID
	return out, nil
}

// Get returns the referral recorded for referredID.
func (s *ReferralService) Get(ctx context.Context, referredID string) (*domain.Referral, error) {
	referral, err := s.store.GetReferral(ctx, referredID)
	if err != nil {
		return nil, storeError(err, "get referral", domainerrors.NotFound("no referral recorded for this user"))
	}
	return referral, nil
}
