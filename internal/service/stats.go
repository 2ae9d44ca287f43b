package service

import (
	"context"
	"log/slog"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// StatsService summarises the ledger for admins.
type StatsService struct {
	store  store.Ledger
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(store store.Ledger, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  store,
		logger: logger,
	}
}

// Stats returns current totals.
func (s *StatsService) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, storeError(err, "stats", nil)
	}
	if stats.StockByPlatform == nil {
		stats.StockByPlatform = map[string]int{}
	}
	s.logger.Debug("stats computed", "users", stats.Users, "keys_total", stats.KeysTotal)
	return stats, nil
}
