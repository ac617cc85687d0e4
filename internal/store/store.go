// Package store implements grid persistence against a MySQL-compatible
// database. All SQL is built with squirrel and executed through the dbexec
// abstraction so tests can run against sqlmock.
package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/rbeccah/airtable/internal/dbexec"
	"github.com/rbeccah/airtable/internal/griderr"
)

// insertChunkSize caps the number of rows created per transaction during
// bulk inserts. Each chunk is all-or-nothing.
const insertChunkSize = 1000

// Store persists bases, tables, columns, rows, cells, and views.
type Store struct {
	exec  dbexec.QueryExecutor
	newID func() string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides id generation, used by tests for determinism.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithClock overrides the time source, used by tests for determinism.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store executing against exec.
func New(exec dbexec.QueryExecutor, opts ...Option) *Store {
	s := &Store{
		exec:  exec,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromDB creates a Store bound directly to a database handle.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(dbexec.NewStandardExecutor(db), opts...)
}

// runTx runs fn inside a transaction, rolling back on error.
func (s *Store) runTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.exec.BeginTx(ctx, nil)
	if err != nil {
		return griderr.Storage(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return griderr.Storage(op, err)
	}
	return nil
}

// psql is the shared statement builder. MySQL uses question placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

func chunked(n int) []int {
	var sizes []int
	for n > 0 {
		size := n
		if size > insertChunkSize {
			size = insertChunkSize
		}
		sizes = append(sizes, size)
		n -= size
	}
	return sizes
}
