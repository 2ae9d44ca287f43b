package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// InitSettings stores defaults unless settings already exist.
func (s *Store) InitSettings(ctx context.Context, defaults *domain.Settings) error {
	channels, err := json.Marshal(nonNil(defaults.RequiredChannels))
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, referral_bonus, required_channels, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		defaults.ReferralBonus, string(channels), formatTime(time.Now()),
	)
	return mapErr(err)
}

// GetSettings returns the current settings.
// Returns store.ErrNotFound if InitSettings never ran.
func (s *Store) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return getSettings(ctx, s.db)
}

func getSettings(ctx context.Context, q querier) (*domain.Settings, error) {
	var (
		st        domain.Settings
		channels  string
		updatedAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT referral_bonus, required_channels, updated_at FROM settings WHERE id = 1`,
	).Scan(&st.ReferralBonus, &channels, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("settings not initialised")
	}
	if err != nil {
		return nil, mapErr(err)
	}

	if err := json.Unmarshal([]byte(channels), &st.RequiredChannels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	st.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SetReferralBonus changes the amount credited per completed referral.
// Referrals already credited keep what they were paid.
func (s *Store) SetReferralBonus(ctx context.Context, bonus int64) (*domain.Settings, error) {
	if bonus < 0 {
		return nil, store.ErrInvalidInput.WithMessage("referral bonus must not be negative")
	}
	return s.updateSettings(ctx, `referral_bonus = ?`, bonus)
}

// SetRequiredChannels replaces the channels a user must join to pass the gating check.
func (s *Store) SetRequiredChannels(ctx context.Context, channels []string) (*domain.Settings, error) {
	encoded, err := json.Marshal(nonNil(channels))
	if err != nil {
		return nil, fmt.Errorf("encode channels: %w", err)
	}
	return s.updateSettings(ctx, `required_channels = ?`, string(encoded))
}

func (s *Store) updateSettings(ctx context.Context, set string, value any) (*domain.Settings, error) {
	var out *domain.Settings
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE settings SET `+set+`, updated_at = ? WHERE id = 1`,
			value, formatTime(time.Now()),
		)
		if err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return store.ErrNotFound.WithMessage("settings not initialised")
		}

		out, err = getSettings(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
