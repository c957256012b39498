// Package sqlite implements the object store contract on SQLite.
//
// Objects are identified by account/container/name paths. Every metadata
// change creates a new version; deleting an object keeps its history.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"plankton/pkg/objectstore"

	_ "modernc.org/sqlite"
)

const dataDirPerm = 0750

// Store owns the database handle shared by all connections.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the object store database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	database, err := sql.Open("sqlite", "file:"+dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", objectstore.ErrDatabase, err)
	}

	store := &Store{db: database}
	if err := store.Initialize(); err != nil {
		_ = database.Close()
		return nil, err
	}

	return store, nil
}

// Open creates the directory holding dbPath if needed and opens the store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), dataDirPerm); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %w", objectstore.ErrDatabase, err)
	}
	return NewStore(dbPath)
}

// Initialize creates the database schema.
func (s *Store) Initialize() error {
	_, err := s.db.ExecContext(context.Background(), Schema)
	if err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %w", objectstore.ErrDatabase, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Connect returns a new connection with its own transaction state.
func (s *Store) Connect() *Backend {
	return &Backend{db: s.db}
}

// Pool returns a bounded pool of connections to this store.
func (s *Store) Pool(size int) *objectstore.Pool {
	return objectstore.NewPool(size, func() (objectstore.Conn, error) {
		return s.Connect(), nil
	})
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Backend is one connection to the store, implementing objectstore.Backend.
type Backend struct {
	db *sql.DB
	mu sync.Mutex
	tx *sql.Tx
}

var _ objectstore.Conn = (*Backend)(nil)

// q returns the open transaction, or the database handle outside of one.
func (b *Backend) q() querier {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

// PreExec begins a transaction.
func (b *Backend) PreExec() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tx != nil {
		return fmt.Errorf("%w: transaction already active", objectstore.ErrTransaction)
	}
	tx, err := b.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", objectstore.ErrDatabase, err)
	}
	b.tx = tx
	return nil
}

// PostExec commits the active transaction on success and rolls it back otherwise.
func (b *Backend) PostExec(success bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tx == nil {
		return fmt.Errorf("%w: no active transaction", objectstore.ErrTransaction)
	}
	tx := b.tx
	b.tx = nil

	if success {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit: %w", objectstore.ErrDatabase, err)
		}
		return nil
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("%w: rollback: %w", objectstore.ErrDatabase, err)
	}
	return nil
}

// Reset rolls back a dangling transaction.
func (b *Backend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tx == nil {
		return nil
	}
	err := b.tx.Rollback()
	b.tx = nil
	if err != nil {
		return fmt.Errorf("%w: rollback: %w", objectstore.ErrDatabase, err)
	}
	return nil
}

// Close rolls back a dangling transaction. The shared database handle stays open.
func (b *Backend) Close() error {
	return b.Reset()
}
