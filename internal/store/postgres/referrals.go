package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// CreditReferral resolves a referred user who passed the gating check.
// The referred user's row is locked first, so concurrent calls for the same
// user run one after the other and all but the first see the referral row.
func (s *Store) CreditReferral(ctx context.Context, referredID string, bonus int64, at time.Time) (*store.ReferralResult, error) {
	if bonus < 0 {
		return nil, store.ErrInvalidInput.WithMessage("referral bonus must not be negative")
	}

	var result *store.ReferralResult
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		referred, err := getUser(ctx, tx, referredID, true)
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

		at = at.UTC()
		if referred.PendingReferrer == "" {
			res, err := tx.ExecContext(ctx,
				`UPDATE users SET verified = TRUE, updated_at = $1 WHERE id = $2 AND NOT verified`, at, referredID)
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
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO referrals (referred_id, referrer_id, created_at) VALUES ($1, $2, $3)`,
			referredID, referrerID, at,
		); err != nil {
			if isUniqueViolation(err) {
				return store.ErrAlreadyReferred
			}
			return fmt.Errorf("insert referral: %w", err)
		}

		_, ceiling, _ := store.BalanceBounds(bonus)
		var balance int64
		err = tx.QueryRowContext(ctx, `
			UPDATE users SET points = points + $1, referrals = referrals + 1, updated_at = $2
			WHERE id = $3 AND points <= $4
			RETURNING points`,
			bonus, at, referrerID, ceiling,
		).Scan(&balance)
		if err == sql.ErrNoRows {
			if _, err := getUser(ctx, tx, referrerID, false); err != nil {
				return store.ErrNotFound.WithMessage("referrer not found")
			}
			return store.ErrBalanceOverflow
		}
		if err != nil {
			return fmt.Errorf("credit referrer: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET verified = TRUE, referred_by = $1, pending_referrer = NULL, updated_at = $2
			WHERE id = $3`,
			referrerID, at, referredID,
		); err != nil {
			return fmt.Errorf("resolve referred user: %w", err)
		}

		result = &store.ReferralResult{
			Outcome: domain.ReferralOutcomeCredited,
			Referral: &domain.Referral{
				ReferrerID: referrerID,
				ReferredID: referredID,
				CreatedAt:  at,
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
func (s *Store) GetReferral(ctx context.Context, referredID string) (*domain.Referral, error) {
	return getReferral(ctx, s.db, referredID)
}

func getReferral(ctx context.Context, q querier, referredID string) (*domain.Referral, error) {
	var r domain.Referral
	err := q.QueryRowContext(ctx,
		`SELECT referrer_id, referred_id, created_at FROM referrals WHERE referred_id = $1`,
		referredID,
	).Scan(&r.ReferrerID, &r.ReferredID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("referral not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// InitSettings stores defaults unless settings already exist.
func (s *Store) InitSettings(ctx context.Context, defaults *domain.Settings) error {
	channels := defaults.RequiredChannels
	if channels == nil {
		channels = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, referral_bonus, required_channels, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		defaults.ReferralBonus, pq.Array(channels), time.Now().UTC())
	return mapErr(err)
}

// GetSettings returns the current settings.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return getSettings(ctx, s.db)
}

func getSettings(ctx context.Context, q querier) (*domain.Settings, error) {
	var st domain.Settings
	err := q.QueryRowContext(ctx,
		`SELECT referral_bonus, required_channels, updated_at FROM settings WHERE id = 1`,
	).Scan(&st.ReferralBonus, pq.Array(&st.RequiredChannels), &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("settings not initialised")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	if st.RequiredChannels == nil {
		st.RequiredChannels = []string{}
	}
	st.UpdatedAt = st.UpdatedAt.UTC()
	return &st, nil
}

// SetReferralBonus changes the amount credited per completed referral.
func (s *Store) SetReferralBonus(ctx context.Context, bonus int64) (*domain.Settings, error) {
	if bonus < 0 {
		return nil, store.ErrInvalidInput.WithMessage("referral bonus must not be negative")
	}
	return s.updateSettings(ctx, `referral_bonus = $1`, bonus)
}

// SetRequiredChannels replaces the channels a user must join.
func (s *Store) SetRequiredChannels(ctx context.Context, channels []string) (*domain.Settings, error) {
	if channels == nil {
		channels = []string{}
	}
	return s.updateSettings(ctx, `required_channels = $1`, pq.Array(channels))
}

func (s *Store) updateSettings(ctx context.Context, set string, value any) (*domain.Settings, error) {
	var out *domain.Settings
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE settings SET `+set+`, updated_at = $2 WHERE id = 1`,
			value, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		if err := expectRow(result, "settings not initialised"); err != nil {
			return err
		}
		out, err = getSettings(ctx, tx)
		return err
	})
	return out, err
}
