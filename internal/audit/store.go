// Package audit implements matching.PostTradeHook by persisting a
// trade execution blotter to SQLite. It is not the book's source of
// truth — the engine's in-memory state is — it exists purely so a
// record of executions survives process restarts for reconciliation.
package audit

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// Store provides SQLite persistence for executed trades.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at dbPath and
// brings its schema up to date.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection for advanced
// operations (reporting queries, etc).
func (s *Store) GetDB() *sql.DB {
	return s.db
}
