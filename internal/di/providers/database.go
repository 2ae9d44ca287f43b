package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/pointsbot/pointsbot-server/internal/config"
	"github.com/pointsbot/pointsbot-server/internal/logger"
	"github.com/pointsbot/pointsbot-server/internal/store"
	"github.com/pointsbot/pointsbot-server/internal/store/postgres"
	"github.com/pointsbot/pointsbot-server/internal/store/sqlite"
)

// StoreHandle wraps the ledger store with shutdown capability.
type StoreHandle struct {
	store.Ledger
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the ledger store selected by the database driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		ledger store.Ledger
		err    error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		ledger, err = postgres.Open(cfg.Database.DSN, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Database.Driver)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		ledger, err = sqlite.Open(cfg.Database.Path, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	}

	return &StoreHandle{Ledger: ledger}, nil
}
