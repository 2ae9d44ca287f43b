package sqlite

import (
	"context"
	"fmt"

	"github.com/pointsbot/pointsbot-server/internal/domain"
)

// Stats computes a summary of the ledger. The counters are read one after the
// other without a shared snapshot; they are informational only.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	st := &domain.Stats{StockByPlatform: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(banned), 0),
			COALESCE(SUM(points), 0)
		FROM users`,
	).Scan(&st.Users, &st.BannedUsers, &st.PointsHeld)
	if err != nil {
		return nil, mapErr(fmt.Errorf("user stats: %w", err))
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(claimed_at) FROM keys`,
	).Scan(&st.KeysTotal, &st.KeysClaimed)
	if err != nil {
		return nil, mapErr(fmt.Errorf("key stats: %w", err))
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM referrals),
			(SELECT COUNT(*) FROM reports WHERE resolved_at IS NULL)`,
	).Scan(&st.Referrals, &st.OpenReports)
	if err != nil {
		return nil, mapErr(fmt.Errorf("referral stats: %w", err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, COUNT(si.id)
		FROM platforms p
		LEFT JOIN stock_items si ON si.platform_id = p.id
		GROUP BY p.id`)
	if err != nil {
		return nil, mapErr(fmt.Errorf("stock stats: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		st.StockByPlatform[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return st, nil
}
