package sqlite

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
		createdAt  string
		claimedBy  sql.NullString
		claimedAt  sql.NullString
		resolvedAt sql.NullString
	)

	err := sc.Scan(
		&r.ID,
		&r.UserID,
		&r.Platform,
		&r.Message,
		&createdAt,
		&claimedBy,
		&claimedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ClaimedBy = claimedBy.String
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	r.ClaimedAt, err = parseNullableTime(claimedAt)
	if err != nil {
		return nil, err
	}
	r.ResolvedAt, err = parseNullableTime(resolvedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReport files a new open report.
func (s *Store) CreateReport(ctx context.Context, report *domain.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, user_id, platform, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		report.ID,
		report.UserID,
		report.Platform,
		report.Message,
		formatTime(report.CreatedAt),
	)
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
// Returns store.ErrNotFound if the report does not exist.
func (s *Store) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return getReport(ctx, s.db, id)
}

func getReport(ctx context.Context, q querier, id string) (*domain.Report, error) {
	row := q.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("report not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return r, nil
}

// ListReports returns reports in the given status, oldest first.
// An empty status lists every report.
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// ClaimReport assigns an open report to adminID. Only the first admin wins;
// later attempts get store.ErrReportTaken.
func (s *Store) ClaimReport(ctx context.Context, id, adminID string, at time.Time) (*domain.Report, error) {
	var out *domain.Report
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE reports SET claimed_by = ?, claimed_at = ?
			WHERE id = ? AND claimed_at IS NULL AND resolved_at IS NULL
			RETURNING `+reportColumns,
			adminID, formatTime(at), id,
		)
		r, err := scanReport(row)
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
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveReport closes a report. An unclaimed report is claimed by adminID in
// the same step; a report claimed by someone else yields store.ErrReportTaken.
func (s *Store) ResolveReport(ctx context.Context, id, adminID string, at time.Time) (*domain.Report, error) {
	var out *domain.Report
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		ts := formatTime(at)
		row := tx.QueryRowContext(ctx, `
			UPDATE reports SET
				claimed_by = COALESCE(claimed_by, ?),
				claimed_at = COALESCE(claimed_at, ?),
				resolved_at = ?
			WHERE id = ? AND resolved_at IS NULL AND (claimed_by IS NULL OR claimed_by = ?)
			RETURNING `+reportColumns,
			adminID, ts, ts, id, adminID,
		)
		r, err := scanReport(row)
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
	if err != nil {
		return nil, err
	}
	return out, nil
}
