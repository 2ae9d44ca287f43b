package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, display_name, joined_at, updated_at, points, referrals,
	banned, verified, pending_referrer, referred_by`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(sc scanner) (*domain.User, error) {
	var u domain.User

	var (
		joinedAt        string
		updatedAt       string
		banned          int
		verified        int
		pendingReferrer sql.NullString
		referredBy      sql.NullString
	)

	err := sc.Scan(
		&u.ID,
		&u.DisplayName,
		&joinedAt,
		&updatedAt,
		&u.Points,
		&u.Referrals,
		&banned,
		&verified,
		&pendingReferrer,
		&referredBy,
	)
	if err != nil {
		return nil, err
	}

	u.JoinedAt, err = parseTime(joinedAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	u.Banned = banned != 0
	u.Verified = verified != 0
	u.PendingReferrer = pendingReferrer.String
	u.ReferredBy = referredBy.String

	return &u, nil
}

func getUser(ctx context.Context, q querier, id string) (*domain.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// UpsertUser records first contact with a user.
// A new user is inserted with its pending referrer; an existing user only has its
// display name refreshed, so a recorded referrer is never overwritten.
// Returns the stored user and whether it was created by this call.
func (s *Store) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, bool, error) {
	var (
		out     *domain.User
		created bool
	)
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		now := formatTime(time.Now())
		joinedAt := now
		if !user.JoinedAt.IsZero() {
			joinedAt = formatTime(user.JoinedAt)
		}

		result, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, display_name, joined_at, updated_at, pending_referrer)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			user.ID,
			user.DisplayName,
			joinedAt,
			now,
			nullString(user.PendingReferrer),
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
				UPDATE users SET display_name = ?, updated_at = ?
				WHERE id = ? AND display_name <> ?`,
				user.DisplayName, now, user.ID, user.DisplayName,
			); err != nil {
				return fmt.Errorf("update display name: %w", err)
			}
		}

		out, err = getUser(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// GetUser retrieves a user by ID.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUser(ctx, s.db, id)
}

// SetUserBanned sets or clears a user's banned flag.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) SetUserBanned(ctx context.Context, id string, banned bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET banned = ?, updated_at = ? WHERE id = ?`,
		boolToInt(banned), formatTime(time.Now()), id,
	)
	if err != nil {
		return mapErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound.WithMessage("user not found")
	}
	return nil
}

// GetBalance returns a user's current points balance.
func (s *Store) GetBalance(ctx context.Context, userID string) (int64, error) {
	var points int64
	err := s.db.QueryRowContext(ctx, `SELECT points FROM users WHERE id = ?`, userID).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound.WithMessage("user not found")
	}
	if err != nil {
		return 0, mapErr(err)
	}
	return points, nil
}

// AdjustBalance adds delta to a user's balance in one conditional update and
// returns the new balance. A negative delta that would overdraw the balance
// fails with store.ErrInsufficientFunds and changes nothing.
func (s *Store) AdjustBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		balance, err = adjustBalance(ctx, tx, userID, delta)
		return err
	})
	return balance, err
}

// adjustBalance is the balance update shared by redemption, stock claims and admin adjustments.
func adjustBalance(ctx context.Context, tx *sql.Tx, userID string, delta int64) (int64, error) {
	floor, ceiling, ok := store.BalanceBounds(delta)
	if !ok {
		return 0, store.ErrBalanceOverflow
	}

	var balance int64
	err := tx.QueryRowContext(ctx, `
		UPDATE users SET points = points + ?, updated_at = ?
		WHERE id = ? AND points >= ? AND points <= ?
		RETURNING points`,
		delta, formatTime(time.Now()), userID, floor, ceiling,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	// No row matched: the user is missing, the debit would overdraw or the
	// credit would overflow.
	if _, err := getUser(ctx, tx, userID); err != nil {
		return 0, err
	}
	if delta > 0 {
		return 0, store.ErrBalanceOverflow
	}
	return 0, store.ErrInsufficientFunds
}

