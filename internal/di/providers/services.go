package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// ProvideSettingsService provides the runtime settings service and seeds the
// configured defaults on first start.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	settings := service.NewSettingsService(storeHandle.Ledger, auditHandle, log.Logger, domain.Settings{
		ReferralBonus:    cfg.Ledger.ReferralBonus,
		RequiredChannels: domain.NormalizeChannels(cfg.Verify.RequiredChannels),
	})
	if err := settings.Init(context.Background()); err != nil {
		return nil, err
	}
	return settings, nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Ledger, auditHandle, log.Logger), nil
}

// ProvideKeyService provides the key redemption engine.
func ProvideKeyService(i do.Injector) (*service.KeyService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewKeyService(storeHandle.Ledger, auditHandle, log.Logger, cfg.Ledger.KeyCodeLength), nil
}

// ProvideClaimService provides the inventory claim engine.
func ProvideClaimService(i do.Injector) (*service.ClaimService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewClaimService(storeHandle.Ledger, auditHandle, log.Logger, store.RandomPick), nil
}

// ProvideReferralService provides the referral credit engine.
func ProvideReferralService(i do.Injector) (*service.ReferralService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	settings := do.MustInvoke[*service.SettingsService](i)
	checker := do.MustInvoke[*CheckerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReferralService(storeHandle.Ledger, settings, checker, auditHandle, log.Logger), nil
}

// ProvidePlatformService provides the platform and stock service.
func ProvidePlatformService(i do.Injector) (*service.PlatformService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlatformService(storeHandle.Ledger, auditHandle, log.Logger, store.RandomPick), nil
}

// ProvideAdminService provides the admin roster service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if len(cfg.Ledger.Owners) == 0 {
		log.Warn("No owners configured; admins can only be added directly in the database")
	}
	return service.NewAdminService(storeHandle.Ledger, auditHandle, log.Logger, cfg.Ledger.Owners), nil
}

// ProvideReportService provides the stock report service.
func ProvideReportService(i do.Injector) (*service.ReportService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReportService(storeHandle.Ledger, auditHandle, log.Logger), nil
}

// ProvideStatsService provides the ledger statistics service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(storeHandle.Ledger, log.Logger), nil
}
