package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

const keyColumns = `code, kind, points, created_by, created_at, claimed_by, claimed_at`

func scanKey(sc scanner) (*domain.Key, error) {
	var (
		k         domain.Key
		kind      string
		claimedBy sql.NullString
		claimedAt sql.NullTime
	)
	err := sc.Scan(&k.Code, &kind, &k.Points, &k.CreatedBy, &k.CreatedAt, &claimedBy, &claimedAt)
	if err != nil {
		return nil, err
	}
	k.Kind = domain.KeyKind(kind)
	k.CreatedAt = k.CreatedAt.UTC()
	k.ClaimedBy = claimedBy.String
	k.ClaimedAt = nullTime(claimedAt)
	return &k, nil
}

// CreateKeys inserts a batch of keys in one transaction.
func (s *Store) CreateKeys(ctx context.Context, keys []*domain.Key) error {
	if len(keys) == 0 {
		return nil
	}
	return s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO keys (code, kind, points, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5)`)
		if err != nil {
			return fmt.Errorf("prepare key insert: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx,
				k.Code, string(k.Kind), k.Points, k.CreatedBy, k.CreatedAt.UTC(),
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
func (s *Store) GetKey(ctx context.Context, code string) (*domain.Key, error) {
	k, err := scanKey(s.db.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM keys WHERE code = $1`, code))
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
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}

	query := `SELECT ` + keyColumns + ` FROM keys`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, code LIMIT $%d`, len(args))

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
	return keys, rows.Err()
}

// RedeemKey claims an unclaimed key and credits its points in one transaction.
// A concurrent redeemer blocks on the key row and then finds claimed_at set.
func (s *Store) RedeemKey(ctx context.Context, code, userID string, at time.Time) (*store.RedeemResult, error) {
	var result *store.RedeemResult
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		k, err := scanKey(tx.QueryRowContext(ctx, `
			UPDATE keys SET claimed_by = $1, claimed_at = $2
			WHERE code = $3 AND claimed_at IS NULL
			RETURNING `+keyColumns,
			userID, at.UTC(), code,
		))
		if err == sql.ErrNoRows {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM keys WHERE code = $1)`, code).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return store.ErrNotFound.WithMessage("key not found")
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
