package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// platformColumns is the ordered list of columns selected in platform queries.
// Must match the scan order in scanPlatform.
const platformColumns = `p.id, p.name, p.kind, p.price, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM stock_items si WHERE si.platform_id = p.id)`

func scanPlatform(sc scanner) (*domain.Platform, error) {
	var (
		p         domain.Platform
		kind      string
		createdAt string
		updatedAt string
	)

	err := sc.Scan(
		&p.ID,
		&p.Name,
		&kind,
		&p.Price,
		&createdAt,
		&updatedAt,
		&p.Stock,
	)
	if err != nil {
		return nil, err
	}

	p.Kind = domain.PlatformKind(kind)
	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func getPlatform(ctx context.Context, q querier, name string) (*domain.Platform, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+platformColumns+` FROM platforms p WHERE p.name_key = ?`, domain.PlatformKey(name))
	p, err := scanPlatform(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("platform not found")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// CreatePlatform inserts a new platform with an empty stock pool.
// Returns store.ErrAlreadyExists if a platform with an equivalent name exists.
func (s *Store) CreatePlatform(ctx context.Context, platform *domain.Platform) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platforms (id, name, name_key, kind, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		platform.ID,
		platform.Name,
		domain.PlatformKey(platform.Name),
		string(platform.Kind),
		platform.Price,
		formatTime(platform.CreatedAt),
		formatTime(platform.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage("platform already exists")
		}
		return mapErr(err)
	}
	return nil
}

// GetPlatform retrieves a platform by name, ignoring case and width differences.
// Returns store.ErrNotFound if the platform does not exist.
func (s *Store) GetPlatform(ctx context.Context, name string) (*domain.Platform, error) {
	return getPlatform(ctx, s.db, name)
}

// ListPlatforms returns all platforms ordered by name, with stock counts.
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return platforms, nil
}

// SetPlatformPrice changes a platform's price. Claims already committed keep
// the price they paid.
func (s *Store) SetPlatformPrice(ctx context.Context, name string, price int64) (*domain.Platform, error) {
	var out *domain.Platform
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE platforms SET price = ?, updated_at = ? WHERE name_key = ?`,
			price, formatTime(time.Now()), domain.PlatformKey(name),
		)
		if err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return store.ErrNotFound.WithMessage("platform not found")
		}

		out, err = getPlatform(ctx, tx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RenamePlatform changes a platform's display name.
// Returns store.ErrAlreadyExists if newName collides with another platform.
func (s *Store) RenamePlatform(ctx context.Context, name, newName string) (*domain.Platform, error) {
	var out *domain.Platform
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE platforms SET name = ?, name_key = ?, updated_at = ? WHERE name_key = ?`,
			newName, domain.PlatformKey(newName), formatTime(time.Now()), domain.PlatformKey(name),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrAlreadyExists.WithMessage("platform already exists")
			}
			return fmt.Errorf("rename platform: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return store.ErrNotFound.WithMessage("platform not found")
		}

		out, err = getPlatform(ctx, tx, newName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePlatform removes a platform and, by cascade, its stock.
// Returns store.ErrNotFound if the platform does not exist.
func (s *Store) DeletePlatform(ctx context.Context, name string) error {
	return s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM platforms WHERE name_key = ?`, domain.PlatformKey(name))
		if err != nil {
			return fmt.Errorf("delete platform: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound.WithMessage("platform not found")
		}
		return nil
	})
}

// AppendStock adds items to a platform's pool and returns the new pool size.
// Each element becomes its own item, duplicates included.
func (s *Store) AppendStock(ctx context.Context, name string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, store.ErrInvalidInput.WithMessage("no stock items given")
	}

	var count int
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := getPlatform(ctx, tx, name)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO stock_items (platform_id, item, added_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare stock insert: %w", err)
		}
		defer stmt.Close()

		now := formatTime(time.Now())
		for _, item := range items {
			if _, err := stmt.ExecContext(ctx, p.ID, item, now); err != nil {
				return fmt.Errorf("insert stock item: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE platforms SET updated_at = ? WHERE id = ?`, now, p.ID); err != nil {
			return fmt.Errorf("touch platform: %w", err)
		}

		count = p.Stock + len(items)
		return nil
	})
	return count, err
}

// GetStock returns a snapshot of a platform's pool in insertion order.
func (s *Store) GetStock(ctx context.Context, name string) ([]string, error) {
	p, err := getPlatform(ctx, s.db, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item FROM stock_items WHERE platform_id = ? ORDER BY id`, p.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	items := make([]string, 0, p.Stock)
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveStockItem takes one item out of a platform's pool without charging anyone.
// Returns store.ErrStockEmpty when the pool is empty.
func (s *Store) RemoveStockItem(ctx context.Context, name string, pick store.StockPicker) (string, error) {
	var item string
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := getPlatform(ctx, tx, name)
		if err != nil {
			return err
		}
		item, err = takeStockItem(ctx, tx, p, pick)
		return err
	})
	return item, err
}

// ClaimStockItem removes one item from a platform's pool and debits its price
// from userID in one transaction. The checks run in order: platform exists,
// balance covers the price, pool is non-empty. Any failure rolls back both the
// removal and the debit.
func (s *Store) ClaimStockItem(ctx context.Context, name, userID string, pick store.StockPicker) (*store.ClaimResult, error) {
	var result *store.ClaimResult
	err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		p, err := getPlatform(ctx, tx, name)
		if err != nil {
			return err
		}

		u, err := getUser(ctx, tx, userID)
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

// takeStockItem picks one row of the pool and deletes it. The delete must hit
// exactly one row; the write lock held by the transaction guarantees no other
// claim can have removed it in between.
func takeStockItem(ctx context.Context, tx *sql.Tx, p *domain.Platform, pick store.StockPicker) (string, error) {
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stock_items WHERE platform_id = ?`, p.ID).Scan(&n); err != nil {
		return "", fmt.Errorf("count stock: %w", err)
	}
	if n == 0 {
		return "", store.ErrStockEmpty
	}

	offset := store.PickOrDefault(pick)(n)
	if offset < 0 || offset >= n {
		return "", fmt.Errorf("stock picker returned %d for %d items", offset, n)
	}

	var (
		id   int64
		item string
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, item FROM stock_items
		WHERE platform_id = ?
		ORDER BY id
		LIMIT 1 OFFSET ?`,
		p.ID, offset,
	).Scan(&id, &item)
	if err == sql.ErrNoRows {
		return "", store.ErrStockEmpty
	}
	if err != nil {
		return "", fmt.Errorf("select stock item: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM stock_items WHERE id = ?`, id)
	if err != nil {
		return "", fmt.Errorf("delete stock item: %w", err)
	}
	if removed, err := result.RowsAffected(); err != nil {
		return "", err
	} else if removed != 1 {
		return "", store.ErrStockEmpty
	}

	p.Stock = n
	return item, nil
}
