package providers

import (
	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/verify"
)

// CheckerHandle wraps the membership checker with shutdown capability.
type CheckerHandle struct {
	*verify.TelegramChecker
}

// Shutdown implements do.Shutdownable.
func (h *CheckerHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideChecker provides the channel-membership checker. Required channels are
// read from settings on every check. Without a bot token the check passes only
// while no channel is required; once one is, every check fails.
func ProvideChecker(i do.Injector) (*CheckerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	settings := do.MustInvoke[*service.SettingsService](i)

	if cfg.Verify.BotToken == "" {
		log.Warn("No Telegram bot token configured; referrals stay pending while channels are required")
	}

	telegram := verify.NewTelegramChecker(verify.TelegramConfig{
		BotToken: cfg.Verify.BotToken,
		BaseURL:  cfg.Verify.APIBaseURL,
		Timeout:  cfg.Verify.Timeout,
		RPS:      cfg.Verify.RPS,
		Burst:    cfg.Verify.Burst,
	}, settings, log.WithComponent("verify").Logger)

	log.Info("Telegram membership checker ready", "timeout", cfg.Verify.Timeout)

	return &CheckerHandle{TelegramChecker: telegram}, nil
}
