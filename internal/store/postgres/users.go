package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

const userColumns = `id, display_name, joined_at, updated_at, points, referrals,
	banned, verified, pending_referrer, referred_by`

func scanUser(sc scanner) (*domain.User, error) {
	var (
		u               domain.User
		pendingReferrer sql.NullString
		referredBy      sql.NullString
	)
	err := sc.Scan(
		&u.ID,
		&u.DisplayName,
		&u.JoinedAt,
		&u.UpdatedAt,
		&u.Points,
		&u.Referrals,
		&u.Banned,
		&u.Verified,
		&pendingReferrer,
		&referredBy,
	)
	if err != nil {
		return nil, err
	}
	u.JoinedAt = u.JoinedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	u.PendingReferrer = pendingReferrer.String
	u.ReferredBy = referredBy.String
	return &u, nil
}

func getUser(ctx context.Context, q querier, id string, lock bool) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	u, err := scanUser(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// UpsertUser records first contact with a user; see the sqlite backend for semantics.
func (s *Store) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, bool, error) {
	var (
		out     *domain.User
		created bool
	)
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		now := time.Now().UTC()
		joinedAt := now
		if !user.JoinedAt.IsZero() {
			joinedAt = user.JoinedAt.UTC()
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, display_name, joined_at, updated_at, pending_referrer)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			user.ID, user.DisplayName, joinedAt, now, nullString(user.PendingReferrer),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrInvalidInput.WithMessage("referrer does not exist")
			}
			return fmt.Errorf("insert user: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1

		if !created && user.DisplayName != "" {
			if _, err := tx.ExecContext(ctx, `
				UPDATE users SET display_name = $1, updated_at = $2
				WHERE id = $3 AND display_name <> $1`,
				user.DisplayName, now, user.ID,
			); err != nil {
				return fmt.Errorf("update display name: %w", err)
			}
		}

		out, err = getUser(ctx, tx, user.ID, false)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, s.db, id, false)
}

// SetUserBanned sets or clears a user's banned flag.
func (s *Store) SetUserBanned(ctx context.Context, id string, banned bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET banned = $1, updated_at = $2 WHERE id = $3`,
		banned, time.Now().UTC(), id)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(result, "user not found")
}

// GetBalance returns a user's current points balance.
func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	var points int64
	err := s.db.QueryRowContext(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return 0, mapErr(err)
	}
	return points, nil
}

// AdjustBalance adds delta to a user's balance; an overdraw fails with
// store.ErrInsufficientFunds and changes nothing.
func (s *Store) AdjustBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		balance, err = adjustBalance(ctx, tx, userID, delta)
		return err
	})
	return balance, err
}

// adjustBalance relies on the row lock taken by UPDATE: a concurrent writer
// waits and then re-evaluates the balance condition against the committed value.
// The bounds are compared without arithmetic so an overflowing credit is
// filtered out instead of raising a bigint range error.
func adjustBalance(ctx context.Context, tx *sql.Tx, userID string, delta int64) (int64, error) {
	floor, ceiling, ok := store.BalanceBounds(delta)
	if !ok {
		return 0, store.ErrBalanceOverflow
	}

	var balance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE users SET points = points + $1, updated_at = $2
		WHERE id = $3 AND points >= $4 AND points <= $5
		RETURNING points`,
		delta, time.Now().UTC(), userID, floor, ceiling,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if _, err := getUser(ctx, tx, userID, false); err != nil {
		return 0, err
	}
	if delta > 0 {
		return 0, store.ErrBalanceOverflow
	}
	return 0, store.ErrInsufficientFunds
}

func expectRow(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage(notFound)
	}
	return nil
}

const adminColumns = `user_id, added_by, banned, created_at`

func scanAdmin(sc scanner) (*domain.Admin, error) {
	var a domain.Admin
	if err := sc.Scan(&a.UserID, &a.AddedBy, &a.Banned, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

// UpsertAdmin grants admin rights, lifting any ban on an existing admin.
func (s *Store) UpsertAdmin(ctx context.Context, admin *domain.Admin) error {
	createdAt := admin.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (user_id, added_by, banned, created_at)
		VALUES ($1, $2, FALSE, $3)
		ON CONFLICT (user_id) DO UPDATE SET banned = FALSE`,
		admin.UserID, admin.AddedBy, createdAt.UTC())
	return mapErr(err)
}

// GetAdmin retrieves an admin by user ID.
func (s *Store) GetAdmin(ctx context.Context, userID string) (*domain.Admin, error) {
	a, err := scanAdmin(s.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("admin not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// SetAdminBanned suspends or restores an admin.
func (s *Store) SetAdminBanned(ctx context.Context, userID string, banned bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE admins SET banned = $1 WHERE user_id = $2`, banned, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(result, "admin not found")
}

// RemoveAdmin revokes admin rights.
func (s *Store) RemoveAdmin(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = $1`, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectRow(result, "admin not found")
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
	return admins, rows.Err()
}
