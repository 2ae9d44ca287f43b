package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// keyColumns is the ordered list of columns selected in key queries.
// Must match the scan order in scanKey.
const keyColumns = `code, kind, points, created_by, created_at, claimed_by, claimed_at`

func scanKey(sc scanner) (*domain.Key, error) {
	var (
		k         domain.Key
		kind      string
		createdAt string
		claimedBy sql.NullString
		claimedAt sql.NullString
	)

	err := sc.Scan(
		&k.Code,
		&kind,
		&k.Points,
		&k.CreatedBy,
		&createdAt,
		&claimedBy,
		&claimedAt,
	)
	if err != nil {
		return nil, err
	}

	k.Kind = domain.KeyKind(kind)
	k.ClaimedBy = claimedBy.String

	k.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	k.ClaimedAt, err = parseNullableTime(claimedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// CreateKeys inserts a batch of keys in one transaction.
// Returns store.ErrAlreadyExists if any code collides; nothing is inserted then.
func (s *Store) CreateKeys(ctx context.Context, keys []*domain.Key) error {
	if len(keys) == 0 {
		return nil
	}
	return s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO keys (code, kind, points, created_by, created_at)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare key insert: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx,
				k.Code,
				string(k.Kind),
				k.Points,
				k.CreatedBy,
				formatTime(k.CreatedAt),
			); err != nil {
				if isUniqueViolation(err) {
					return store.ErrAlreadyExists.WithMessage("key code " + k.Code + " already exists")
				}
				return fmt.Errorf("insert key: %w", err)
			}
		}
		return nil
	})
}

// GetKey retrieves a key by its code.
// Returns store.ErrNotFound if the key does not exist.
func (s *Store) GetKey(ctx context.Context, code string) (*domain.Key, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+keyColumns+` FROM keys WHERE code = ?`, code)
	k, err := scanKey(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("key not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return k, nil
}

// ListKeys returns keys matching filter, newest first.
func (s *Store) ListKeys(ctx context.Context, filter store.KeyFilter) ([]*domain.Key, error) {
	filter.Normalize()

	var (
		where []string
		args  []any
	)
	if filter.Claimed != nil {
		if *filter.Claimed {
			where = append(where, "claimed_at IS NOT NULL")
		} else {
			where = append(where, "claimed_at IS NULL")
		}
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	query := `SELECT ` + keyColumns + ` FROM keys`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, code LIMIT ?`
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var keys []*domain.Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// RedeemKey claims an unclaimed key for userID and credits its points in one
// transaction. The claim is a conditional update on claimed_at IS NULL, so of two
// concurrent redemptions exactly one sees a row.
// Returns store.ErrNotFound for an unknown code and store.ErrKeyClaimed if the key
// was already redeemed.
func (s *Store) RedeemKey(ctx context.Context, code, userID string, at time.Time) (*store.RedeemResult, error) {
	var result *store.RedeemResult
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			UPDATE keys SET claimed_by = ?, claimed_at = ?
			WHERE code = ? AND claimed_at IS NULL
			RETURNING `+keyColumns,
			userID, formatTime(at), code,
		)
		k, err := scanKey(row)
		if err == sql.ErrNoRows {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM keys WHERE code = ?`, code).Scan(&exists)
			if err == sql.ErrNoRows {
				return store.ErrNotFound.WithMessage("key not found")
			}
			if err != nil {
				return err
			}
			return store.ErrKeyClaimed
		}
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrNotFound.WithMessage("user not found")
			}
			return fmt.Errorf("claim key: %w", err)
		}

		balance, err := adjustBalance(ctx, tx, userID, k.Points)
		if err != nil {
			return err
		}

		result = &store.RedeemResult{Key: k, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
