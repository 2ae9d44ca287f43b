package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Journal key layout: "evt:" + 8-byte big-endian unix nanos + 16-byte event UUID.
// Keys sort by time, so a reverse prefix scan yields newest first.
const journalPrefix = "evt:"

// Query selects events from a Reader.
type Query struct {
	Kind   Kind      // Empty matches every kind
	UserID string    // Empty matches every user
	Since  time.Time // Zero means no lower bound
	Limit  int       // Defaults to 100, capped at 1000
}

func (q *Query) normalize() {
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}
}

func (q *Query) matches(e Event) bool {
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.UserID != "" && e.UserID != q.UserID {
		return false
	}
	return q.Since.IsZero() || !e.At.Before(q.Since)
}

// Reader lists recorded events, newest first.
type Reader interface {
	Recent(ctx context.Context, q Query) ([]Event, error)
}

// Journal is a durable Badger-backed audit sink.
type Journal struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenJournal opens or creates a journal at path.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	return openJournal(path, false, logger)
}

// OpenJournalReadOnly opens an existing journal for inspection. It fails while
// a server holds the journal open.
func OpenJournalReadOnly(path string, logger *slog.Logger) (*Journal, error) {
	return openJournal(path, true, logger)
}

func openJournal(path string, readOnly bool, logger *slog.Logger) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Sync every event to disk
	opts.CompactL0OnClose = !readOnly
	opts.ReadOnly = readOnly

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit journal: %w", err)
	}

	logger.Info("audit journal opened", slog.String("path", path), slog.Bool("read_only", readOnly))
	return &Journal{db: db, logger: logger}, nil
}

// Close closes the journal.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Name implements Sink.
func (j *Journal) Name() string { return "journal" }

// Write implements Sink.
func (j *Journal) Write(_ context.Context, e Event) error {
	key, err := journalKey(e)
	if err != nil {
		return err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Recent implements Reader by scanning backwards from the newest event.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Event, error) {
	q.normalize()

	var out []Event
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(journalPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek positions at the last key <= the seek key.
		seek := append([]byte(journalPrefix), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			if !q.Since.IsZero() && keyTime(item.Key()).Before(q.Since) {
				break
			}

			var e Event
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				j.logger.Warn("skipping unreadable audit entry",
					slog.String("key", fmt.Sprintf("%x", item.KeyCopy(nil))),
					slog.String("error", err.Error()))
				continue
			}
			if !q.matches(e) {
				continue
			}
			out = append(out, e)
			if len(out) == q.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Count returns the number of stored events.
func (j *Journal) Count() (int, error) {
	n := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(journalPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func journalKey(e Event) ([]byte, error) {
	eventID, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, fmt.Errorf("event id %q: %w", e.ID, err)
	}
	if e.At.IsZero() {
		return nil, errors.New("event has no timestamp")
	}
	key := make([]byte, 0, len(journalPrefix)+8+16)
	key = append(key, journalPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(e.At.UnixNano())) //nolint:gosec // pre-1970 events do not occur
	key = append(key, eventID[:]...)
	return key, nil
}

func keyTime(key []byte) time.Time {
	if len(key) < len(journalPrefix)+8 {
		return time.Time{}
	}
	nanos := binary.BigEndian.Uint64(key[len(journalPrefix):])
	return time.Unix(0, int64(nanos)).UTC() //nolint:gosec // written from a non-negative int64
}
