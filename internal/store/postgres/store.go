// Package postgres implements store.Ledger on PostgreSQL.
// Conflicting writers are serialised with SELECT ... FOR UPDATE row locks:
// the platform row guards its stock pool and the user row guards its balance.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/pointsbot/pointsbot-server/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const maxTxAttempts = 5

// Store provides PostgreSQL-backed persistence for the ledger.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Ledger = (*Store)(nil)

// Open connects to dsn, verifies the connection and applies the schema.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return mapErr(s.db.PingContext(ctx))
}

// withTx runs fn in a READ COMMITTED transaction and commits it. Serialization
// failures and deadlocks are retried; a transaction that has begun is not
// interrupted by the caller's context.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	txCtx := context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = s.runTx(txCtx, fn)
		if !isRetryable(err) {
			return mapErr(err)
		}

		s.logger.Warn("postgres conflict, retrying transaction",
			"attempt", attempt,
			"error", err,
		)
		time.Sleep(time.Duration(attempt) * 25 * time.Millisecond)
	}
	return store.ErrUnavailable.WithCause(err)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// isRetryable reports whether the whole transaction can simply run again.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

// mapErr turns connection failures into store.ErrUnavailable.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) {
		return store.ErrUnavailable.WithCause(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection_exception, insufficient_resources, operator_intervention
			return store.ErrUnavailable.WithCause(err)
		}
	}
	return err
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == "23503"
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
