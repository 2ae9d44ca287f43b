package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// SettingsService manages the admin-tunable ledger settings.
// Values are read from the store on every call so edits apply immediately.
type SettingsService struct {
	store    store.Ledger
	notifier Notifier
	logger   *slog.Logger
	defaults domain.Settings
}

// NewSettingsService creates a new settings service. defaults are seeded by
// Init and returned while the settings row is missing.
func NewSettingsService(store store.Ledger, notifier Notifier, logger *slog.Logger, defaults domain.Settings) *SettingsService {
	defaults.RequiredChannels = domain.NormalizeChannels(defaults.RequiredChannels)
	return &SettingsService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		defaults: defaults,
	}
}

// Init seeds the defaults unless settings were stored before.
func (s *SettingsService) Init(ctx context.Context) error {
	defaults := s.defaults
	if err := s.store.InitSettings(ctx, &defaults); err != nil {
		return storeError(err, "init settings", nil)
	}
	return nil
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.store.GetSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		defaults := s.defaults
		return &defaults, nil
	}
	if err != nil {
		return nil, storeError(err, "get settings", nil)
	}
	return settings, nil
}

// ReferralBonus returns the amount a referrer is paid right now.
func (s *SettingsService) ReferralBonus(ctx context.Context) (int64, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return settings.ReferralBonus, nil
}

// RequiredChannels implements verify.ChannelSource.
func (s *SettingsService) RequiredChannels(ctx context.Context) ([]string, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings.RequiredChannels, nil
}

// SetReferralBonus changes the referral bonus. Referrals already credited keep
// what they were paid.
func (s *SettingsService) SetReferralBonus(ctx context.Context, actorID string, bonus int64) (*domain.Settings, error) {
	if bonus < 0 {
		return nil, domainerrors.Validation("referral bonus must not be negative")
	}
	if bonus > domain.MaxPoints {
		return nil, domainerrors.Validationf("referral bonus must not exceed %d", domain.MaxPoints)
	}
	settings, err := s.store.SetReferralBonus(ctx, bonus)
	if err != nil {
		return nil, storeError(err, "set referral bonus", nil)
	}

	s.logger.Info("referral bonus changed", "actor_id", actorID, "bonus", bonus)
	event := audit.NewEvent(audit.KindSettingsChanged)
	event.ActorID = actorID
	s.notifier.Notify(event.With("referral_bonus", strconv.FormatInt(bonus, 10)))
	return settings, nil
}

// SetRequiredChannels replaces the channels a user must join before their
// referral counts. An empty list turns the check off.
func (s *SettingsService) SetRequiredChannels(ctx context.Context, actorID string, channels []string) (*domain.Settings, error) {
	channels = domain.NormalizeChannels(channels)
	for _, ch := range channels {
		if strings.ContainsAny(ch, " \t\r\n") {
			return nil, domainerrors.Validationf("invalid channel %q", ch)
		}
	}

	settings, err := s.store.SetRequiredChannels(ctx, channels)
	if err != nil {
		return nil, storeError(err, "set required channels", nil)
	}

	s.logger.Info("required channels changed", "actor_id", actorID, "channels", channels)
	event := audit.NewEvent(audit.KindSettingsChanged)
	event.ActorID = actorID
	s.notifier.Notify(event.With("required_channels", strings.Join(channels, ",")))
	return settings, nil
}

// AddRequiredChannel appends one channel to the list.
func (s *SettingsService) AddRequiredChannel(ctx context.Context, actorID, channel string) (*domain.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.SetRequiredChannels(ctx, actorID, append(current.RequiredChannels, channel))
}

// RemoveRequiredChannel drops one channel from the list.
// Returns NotFound if the channel was not required.
func (s *SettingsService) RemoveRequiredChannel(ctx context.Context, actorID, channel string) (*domain.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	normalized := domain.NormalizeChannels([]string{channel})
	if len(normalized) == 0 {
		return nil, domainerrors.Validation("channel is required")
	}

	kept := make([]string, 0, len(current.RequiredChannels))
	for _, ch := range current.RequiredChannels {
		if !strings.EqualFold(ch, normalized[0]) {
			kept = append(kept, ch)
		}
	}
	if len(kept) == len(current.RequiredChannels) {
		return nil, domainerrors.NotFoundf("channel %s is not required", normalized[0])
	}
	return s.SetRequiredChannels(ctx, actorID, kept)
}
