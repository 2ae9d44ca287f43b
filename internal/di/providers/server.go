package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/api"
	"github.com/pointsbot/pointsbot-server/internal/auth"
	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/service"
	"github.com/pointsbot/pointsbot-server/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	auditHandle := do.MustInvoke[*AuditHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	operators := do.MustInvoke[auth.Operators](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Keys:      do.MustInvoke[*service.KeyService](i),
		Claims:    do.MustInvoke[*service.ClaimService](i),
		Referrals: do.MustInvoke[*service.ReferralService](i),
		Users:     do.MustInvoke[*service.UserService](i),
		Platforms: do.MustInvoke[*service.PlatformService](i),
		Admins:    do.MustInvoke[*service.AdminService](i),
		Reports:   do.MustInvoke[*service.ReportService](i),
		Settings:  do.MustInvoke[*service.SettingsService](i),
		Stats:     do.MustInvoke[*service.StatsService](i),
	}

	handler := api.NewServer(
		storeHandle.Ledger,
		services,
		tokens,
		operators,
		auditHandle.Reader,
		api.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Events:         sse.NewHandler(sseHandle.Manager, log.WithComponent("sse").Logger),
		},
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
