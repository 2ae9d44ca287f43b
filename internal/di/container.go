// Package di provides dependency injection configuration for the points bot server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/auth"
	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/di/providers"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Persistence and audit
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideAudit)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideOperators)

	// Business services
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideChecker)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideKeyService)
	do.Provide(injector, providers.ProvideClaimService)
	do.Provide(injector, providers.ProvideReferralService)
	do.Provide(injector, providers.ProvidePlatformService)
	do.Provide(injector, providers.ProvideAdminService)
	do.Provide(injector, providers.ProvideReportService)
	do.Provide(injector, providers.ProvideStatsService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.AuditHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[auth.Operators](injector); err != nil {
		return err
	}

	// Business services
	if _, err := do.Invoke[*service.SettingsService](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.CheckerHandle](injector)
	_ = do.MustInvoke[*service.KeyService](injector)
	_ = do.MustInvoke[*service.ClaimService](injector)
	_ = do.MustInvoke[*service.ReferralService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
