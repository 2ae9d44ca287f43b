package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

const platformColumns = `p.id, p.name, p.kind, p.price, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM stock_items si WHERE si.platform_id = p.id)`

func scanPlatform(sc scanner) (*domain.Platform, error) {
	var (
		p    domain.Platform
		kind string
	)
	err := sc.Scan(&p.ID, &p.Name, &kind, &p.Price, &p.CreatedAt, &p.UpdatedAt, &p.Stock)
	if err != nil {
		return nil, err
	}
	p.Kind = domain.PlatformKind(kind)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// getPlatform loads a platform by name. With lock set the platform row is held
// FOR UPDATE, which serialises every writer of its stock pool.
func getPlatform(ctx context.Context, q querier, name string, lock bool) (*domain.Platform, error) {
	query := `SELECT ` + platformColumns + ` FROM platforms p WHERE p.name_key = $1`
	if lock {
		query += ` FOR UPDATE OF p`
	}
	p, err := scanPlatform(q.QueryRowContext(ctx, query, domain.PlatformKey(name)))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("platform not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// CreatePlatform inserts a new platform with an empty pool.
func (s *Store) CreatePlatform(ctx context.Context, platform *domain.Platform) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platforms (id, name, name_key, kind, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		platform.ID,
		platform.Name,
		domain.PlatformKey(platform.Name),
		string(platform.Kind),
		platform.Price,
		platform.CreatedAt.UTC(),
		platform.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("platform already exists")
		}
		return mapErr(err)
	}
	return nil
}

// GetPlatform retrieves a platform by name.
func (s *Store) GetPlatform(ctx context.Context, name string) (*domain.Platform, error) {
	return getPlatform(ctx, s.db, name, false)
}

// ListPlatforms returns all platforms ordered by name.
func (s *Store) ListPlatforms(ctx context.Context) ([]*domain.Platform, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+platformColumns+` FROM platforms p ORDER BY p.name_key`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var platforms []*domain.Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// SetPlatformPrice changes a platform's price.
func (s *Store) SetPlatformPrice(ctx context.Context, name string, price int64) (*domain.Platform, error) {
	var out *domain.Platform
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE platforms SET price = $1, updated_at = $2 WHERE name_key = $3`,
			price, time.Now().UTC(), domain.PlatformKey(name))
		if err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if err := expectRow(result, "platform not found"); err != nil {
			return err
		}
		out, err = getPlatform(ctx, tx, name, false)
		return err
	})
	return out, err
}

// RenamePlatform changes a platform's display name.
func (s *Store) RenamePlatform(ctx context.Context, name, newName string) (*domain.Platform, error) {
	var out *domain.Platform
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE platforms SET name = $1, name_key = $2, updated_at = $3 WHERE name_key = $4`,
			newName, domain.PlatformKey(newName), time.Now().UTC(), domain.PlatformKey(name))
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrAlreadyExists.WithMessage("platform already exists")
			}
			return fmt.Errorf("rename platform: %w", err)
		}
		if err := expectRow(result, "platform not found"); err != nil {
			return err
		}
		out, err = getPlatform(ctx, tx, newName, false)
		return err
	})
	return out, err
}

// DeletePlatform removes a platform and, by cascade, its stock.
func (s *Store) DeletePlatform(ctx context.Context, name string) error {
	return s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM platforms WHERE name_key = $1`, domain.PlatformKey(name))
		if err != nil {
			return fmt.Errorf("delete platform: %w", err)
		}
		return expectRow(result, "platform not found")
	})
}

// AppendStock adds items to a platform's pool in a single array insert.
func (s *Store) AppendStock(ctx context.Context, name string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, store.ErrInvalidInput.WithMessage("no stock items given")
	}

	var count int
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := getPlatform(ctx, tx, name, true)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO stock_items (platform_id, item, added_at)
			SELECT $1, item, $2 FROM unnest($3::text[]) WITH ORDINALITY AS t(item, ord)
			ORDER BY ord`,
			p.ID, now, pq.Array(items),
		); err != nil {
			return fmt.Errorf("insert stock items: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE platforms SET updated_at = $1 WHERE id = $2`, now, p.ID); err != nil {
			return fmt.Errorf("touch platform: %w", err)
		}

		count = p.Stock + len(items)
		return nil
	})
	return count, err
}

// GetStock returns a snapshot of a platform's pool in insertion order.
func (s *Store) GetStock(ctx context.Context, name string) ([]string, error) {
	p, err := getPlatform(ctx, s.db, name, false)
	if err != nil {
		return nil, err
	}

	var items []string
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(item ORDER BY id), '{}') FROM stock_items WHERE platform_id = $1`,
		p.ID,
	).Scan(pq.Array(&items))
	if err != nil {
		return nil, mapErr(err)
	}
	return items, nil
}

// RemoveStockItem takes one item out of a platform's pool without charging anyone.
func (s *Store) RemoveStockItem(ctx context.Context, name string, pick store.StockPicker) (string, error) {
	var item string
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := getPlatform(ctx, tx, name, true)
		if err != nil {
			return err
		}
		item, err = takeStockItem(ctx, tx, p, pick)
		return err
	})
	return item, err
}

// ClaimStockItem removes one item and debits its price in one transaction.
// Locks are taken platform first, then user.
func (s *Store) ClaimStockItem(ctx context.Context, name, userID string, pick store.StockPicker) (*store.ClaimResult, error) {
	var result *store.ClaimResult
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := getPlatform(ctx, tx, name, true)
		if err != nil {
			return err
		}

		u, err := getUser(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if !u.CanAfford(p.Price) {
			return store.ErrInsufficientFunds
		}

		item, err := takeStockItem(ctx, tx, p, pick)
		if err != nil {
			return err
		}

		balance, err := adjustBalance(ctx, tx, userID, -p.Price)
		if err != nil {
			return err
		}

		p.Stock--
		result = &store.ClaimResult{
			Item:      item,
			Platform:  p,
			Balance:   balance,
			ClaimedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// takeStockItem must run while the platform row is locked.
func takeStockItem(ctx context.Context, tx *sql.Tx, p *domain.Platform, pick store.StockPicker) (string, error) {
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_items WHERE platform_id = $1`, p.ID).Scan(&n); err != nil {
		return "", fmt.Errorf("count stock: %w", err)
	}
	if n == 0 {
		return "", store.ErrStockEmpty
	}

	offset := store.PickOrDefault(pick)(n)
	if offset < 0 || offset >= n {
		return "", fmt.Errorf("stock picker returned %d for %d items", offset, n)
	}

	var item string
	err := tx.QueryRowContext(ctx, `
		DELETE FROM stock_items
		WHERE id = (
			SELECT id FROM stock_items
			WHERE platform_id = $1
			ORDER BY id
			LIMIT 1 OFFSET $2
		)
		RETURNING item`,
		p.ID, offset,
	).Scan(&item)
	if err == sql.ErrNoRows {
		return "", store.ErrStockEmpty
	}
	if err != nil {
		return "", fmt.Errorf("delete stock item: %w", err)
	}

	p.Stock = n
	return item, nil
}
