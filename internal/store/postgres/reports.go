package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

const reportColumns = `id, user_id, platform, message, created_at, claimed_by, claimed_at, resolved_at`

func scanReport(sc scanner) (*domain.Report, error) {
	var (
		r          domain.Report
		claimedBy  sql.NullString
		claimedAt  sql.NullTime
		resolvedAt sql.NullTime
	)
	err := sc.Scan(&r.ID, &r.UserID, &r.Platform, &r.Message, &r.CreatedAt,
		&claimedBy, &claimedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.ClaimedBy = claimedBy.String
	r.ClaimedAt = nullTime(claimedAt)
	r.ResolvedAt = nullTime(resolvedAt)
	return &r, nil
}

// CreateReport files a new open report.
func (s *Store) CreateReport(ctx context.Context, report *domain.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, platform, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		report.ID, report.UserID, report.Platform, report.Message, report.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrNotFound.WithMessage("user not found")
		}
		return mapErr(err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return getReport(ctx, s.db, id)
}

func getReport(ctx context.Context, q querier, id string) (*domain.Report, error) {
	r, err := scanReport(q.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("report not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return r, nil
}

// ListReports returns reports in the given status, oldest first.
func (s *Store) ListReports(ctx context.Context, status domain.ReportStatus) ([]*domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports`
	switch status {
	case domain.ReportOpen:
		query += ` WHERE claimed_at IS NULL AND resolved_at IS NULL`
	case domain.ReportClaimed:
		query += ` WHERE claimed_at IS NOT NULL AND resolved_at IS NULL`
	case domain.ReportResolved:
		query += ` WHERE resolved_at IS NOT NULL`
	case "":
	default:
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown report status %q", status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// ClaimReport assigns an open report to adminID; only the first admin wins.
func (s *Store) ClaimReport(ctx context.Context, id, adminID string, at time.Time) (*domain.Report, error) {
	var out *domain.Report
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		r, err := scanReport(tx.QueryRowContext(ctx, `
			UPDATE reports SET claimed_by = $1, claimed_at = $2
			WHERE id = $3 AND claimed_at IS NULL AND resolved_at IS NULL
			RETURNING `+reportColumns,
			adminID, at.UTC(), id))
		if err == sql.ErrNoRows {
			if _, err := getReport(ctx, tx, id); err != nil {
				return err
			}
			return store.ErrReportTaken
		}
		if err != nil {
			return fmt.Errorf("claim report: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}

// ResolveReport closes a report claimed by adminID or not claimed at all.
func (s *Store) ResolveReport(ctx context.Context, id, adminID string, at time.Time) (*domain.Report, error) {
	var out *domain.Report
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		r, err := scanReport(tx.QueryRowContext(ctx, `
			UPDATE reports SET
				claimed_by = COALESCE(claimed_by, $1),
				claimed_at = COALESCE(claimed_at, $2),
				resolved_at = $2
			WHERE id = $3 AND resolved_at IS NULL AND (claimed_by IS NULL OR claimed_by = $1)
			RETURNING `+reportColumns,
			adminID, at.UTC(), id))
		if err == sql.ErrNoRows {
			if _, err := getReport(ctx, tx, id); err != nil {
				return err
			}
			return store.ErrReportTaken
		}
		if err != nil {
			return fmt.Errorf("resolve report: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}

// Stats computes a summary of the ledger.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	st := &domain.Stats{StockByPlatform: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE banned),
			(SELECT COALESCE(SUM(points), 0) FROM users),
			(SELECT COUNT(*) FROM keys),
			(SELECT COUNT(*) FROM keys WHERE claimed_at IS NOT NULL),
			(SELECT COUNT(*) FROM referrals),
			(SELECT COUNT(*) FROM reports WHERE resolved_at IS NULL)`,
	).Scan(&st.Users, &st.BannedUsers, &st.PointsHeld, &st.KeysTotal, &st.KeysClaimed,
		&st.Referrals, &st.OpenReports)
	if err != nil {
		return nil, mapErr(fmt.Errorf("ledger stats: %w", err))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, COUNT(si.id)
		FROM platforms p
		LEFT JOIN stock_items si ON si.platform_id = p.id
		GROUP BY p.id, p.name`)
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
	return st, rows.Err()
}
