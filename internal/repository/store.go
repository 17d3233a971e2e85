// Package repository is the MySQL persistence layer.  Store implements
// the interfaces consumed by the reservation engine, the cleanup
// sweeper and the broadcast hub; the row-locking contract (FOR UPDATE
// in ascending id order) lives here.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fairwaylabs/teesheet/internal/engine"
)

// Store provides transactional access to events, registrations and
// slots. All timestamps are stored and compared in UTC.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the provided database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying pool for components that manage their own
// transactions.
func (s *Store) DB() *sql.DB { return s.db }

// InTx runs fn inside a transaction, committing on nil and rolling
// back on error.
func (s *Store) InTx(ctx context.Context, fn func(tx engine.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// txStore is the transactional slice of the store. Every method runs
// against the enclosing *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// placeholders builds a "?, ?, ?" list for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
