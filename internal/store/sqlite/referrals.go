package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// CreditReferral resolves a referred user who passed the gating check.
// In one transaction it inserts the referral row, credits the referrer by bonus,
// bumps the referrer's count, marks the referred user verified and clears the
// pending referrer. A user that already has a referral row is left untouched and
// reported as already credited; a user without a pending referrer is only marked
// verified.
func (s *Store) CreditReferral(ctx context.Context, referredID string, bonus int64, at time.Time) (*store.ReferralResult, error) {
	if bonus < 0 {
		return nil, store.ErrInvalidInput.WithMessage("referral bonus must not be negative")
	}

	var result *store.ReferralResult
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		referred, err := getUser(ctx, tx, referredID)
		if err != nil {
			return err
		}

		existing, err := getReferral(ctx, tx, referredID)
		switch {
		case err == nil:
			result = &store.ReferralResult{
				Outcome:  domain.ReferralOutcomeAlreadyCredited,
				Referral: existing,
			}
			return nil
		case !isNotFound(err):
			return err
		}

		now := formatTime(at)
		if referred.PendingReferrer == "" {
			res, err := tx.ExecContext(ctx,
				`UPDATE users SET verified = 1, updated_at = ? WHERE id = ? AND verified = 0`, now, referredID)
			if err != nil {
				return fmt.Errorf("mark verified: %w", err)
			}
			changed, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("mark verified: %w", err)
			}
			result = &store.ReferralResult{Outcome: domain.ReferralOutcomeVerified, NewlyVerified: changed == 1}
			return nil
		}

		referrerID := referred.PendingReferrer
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO referrals (referred_id, referrer_id, created_at) VALUES (?, ?, ?)`,
			referredID, referrerID, now,
		); err != nil {
			if isUniqueViolation(err) {
				return store.ErrAlreadyReferred
			}
			return fmt.Errorf("insert referral: %w", err)
		}

		_, ceiling, _ := store.BalanceBounds(bonus)
		var balance int64
		err = tx.QueryRowContext(ctx, `
			UPDATE users SET points = points + ?, referrals = referrals + 1, updated_at = ?
			WHERE id = ? AND points <= ?
			RETURNING points`,
			bonus, now, referrerID, ceiling,
		).Scan(&balance)
		if err == sql.ErrNoRows {
			if _, err := getUser(ctx, tx, referrerID); err != nil {
				return store.ErrNotFound.WithMessage("referrer not found")
			}
			return store.ErrBalanceOverflow
		}
		if err != nil {
			return fmt.Errorf("credit referrer: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET verified = 1, referred_by = ?, pending_referrer = NULL, updated_at = ?
			WHERE id = ?`,
			referrerID, now, referredID,
		); err != nil {
			return fmt.Errorf("resolve referred user: %w", err)
		}

		result = &store.ReferralResult{
			Outcome: domain.ReferralOutcomeCredited,
			Referral: &domain.Referral{
				ReferrerID: referrerID,
				ReferredID: referredID,
				CreatedAt:  at.UTC(),
			},
			Bonus:           bonus,
			ReferrerBalance: balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetReferral retrieves the referral row for a referred user.
// Returns store.ErrNotFound if the user was never credited.
func (s *Store) GetReferral(ctx context.Context, referredID string) (*domain.Referral, error) {
	return getReferral(ctx, s.db, referredID)
}

func getReferral(ctx context.Context, q querier, referredID string) (*domain.Referral, error) {
	var (
		r         domain.Referral
		createdAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT referrer_id, referred_id, created_at FROM referrals WHERE referred_id = ?`,
		referredID,
	).Scan(&r.ReferrerID, &r.ReferredID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("referral not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}

	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
