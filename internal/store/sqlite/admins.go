package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

const adminColumns = `user_id, added_by, banned, created_at`

func scanAdmin(sc scanner) (*domain.Admin, error) {
	var (
		a         domain.Admin
		banned    int
		createdAt string
	)
	if err := sc.Scan(&a.UserID, &a.AddedBy, &banned, &createdAt); err != nil {
		return nil, err
	}
	a.Banned = banned != 0

	var err error
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAdmin grants admin rights. Re-adding an existing admin lifts any ban
// and keeps the original creation record.
func (s *Store) UpsertAdmin(ctx context.Context, admin *domain.Admin) error {
	createdAt := admin.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, added_by, banned, created_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(user_id) DO UPDATE SET banned = 0`,
		admin.UserID, admin.AddedBy, formatTime(createdAt),
	)
	return mapErr(err)
}

// GetAdmin retrieves an admin by user ID.
// Returns store.ErrNotFound if the user is not an admin.
func (s *Store) GetAdmin(ctx context.Context, userID string) (*domain.Admin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE user_id = ?`, userID)
	a, err := scanAdmin(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("admin not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// SetAdminBanned suspends or restores an admin without removing the row.
func (s *Store) SetAdminBanned(ctx context.Context, userID string, banned bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE admins SET banned = ? WHERE user_id = ?`, boolToInt(banned), userID)
	if err != nil {
		return mapErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("admin not found")
	}
	return nil
}

// RemoveAdmin revokes admin rights.
// Returns store.ErrNotFound if the user is not an admin.
func (s *Store) RemoveAdmin(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return mapErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("admin not found")
	}
	return nil
}

// ListAdmins returns all admins ordered by creation time.
func (s *Store) ListAdmins(ctx context.Context) ([]*domain.Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+adminColumns+` FROM admins ORDER BY created_at, user_id`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var admins []*domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return admins, nil
}
