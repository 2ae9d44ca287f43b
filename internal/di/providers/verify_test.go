package providers

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/store/sqlite"
	"github.com/pointsbot/pointsbot-server/internal/verify"
)

// checkerInjector wires ProvideChecker's dependencies around a temporary
// ledger seeded with channels.
func checkerInjector(t *testing.T, cfg *config.Config, channels []string) do.Injector {
	t.Helper()

	log := logger.New(logger.Config{Writer: io.Discard, Level: slog.LevelError})
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"), log.Logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() }) //nolint:errcheck // Test cleanup

	settings := service.NewSettingsService(s, service.NopNotifier{}, log.Logger, domain.Settings{
		ReferralBonus:    1,
		RequiredChannels: channels,
	})
	require.NoError(t, settings.Init(context.Background()))

	injector := do.New()
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)
	do.ProvideValue(injector, settings)
	return injector
}

func TestProvideChecker_NoTokenWithRequiredChannelsFails(t *testing.T) {
	injector := checkerInjector(t, &config.Config{}, []string{"@must_join"})

	handle, err := ProvideChecker(injector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Shutdown() }) //nolint:errcheck // Test cleanup

	ok, err := handle.IsMember(context.Background(), "42")
	assert.False(t, ok)
	assert.ErrorIs(t, err, verify.ErrNoToken)
}

func TestProvideChecker_NoTokenNoChannelsPasses(t *testing.T) {
	injector := checkerInjector(t, &config.Config{}, nil)

	handle, err := ProvideChecker(injector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Shutdown() }) //nolint:errcheck // Test cleanup

	ok, err := handle.IsMember(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProvideChecker_ChannelsAddedLaterCloseTheGate(t *testing.T) {
	injector := checkerInjector(t, &config.Config{}, nil)
	settings := do.MustInvoke[*service.SettingsService](injector)

	handle, err := ProvideChecker(injector)
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Shutdown() }) //nolint:errcheck // Test cleanup

	_, err = settings.AddRequiredChannel(context.Background(), "owner", "@news")
	require.NoError(t, err)

	ok, err := handle.IsMember(context.Background(), "42")
	assert.False(t, ok)
	assert.ErrorIs(t, err, verify.ErrNoToken)
}
