// Package sqlite is the persistent store driver, selected with
// STORE_DRIVER=sqlite. Schema changes go through embedded golang-migrate
// migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/anongram/server/internal/chat/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// DSN builds the connection string for a database file. Transactions start
// immediate so concurrent writers queue on busy_timeout instead of failing
// with SQLITE_BUSY on the deferred lock upgrade, and WAL keeps readers from
// blocking writers.
func DSN(file string) string {
	return "file:" + file + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Users() store.Users             { return &usersRepo{db: s.db} }
func (s *Store) Codes() store.VerificationCodes { return &codesRepo{db: s.db} }
func (s *Store) Professions() store.Professions { return &professionsRepo{db: s.db} }
func (s *Store) Messages() store.Messages       { return &messagesRepo{db: s.db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

var _ store.Store = (*Store)(nil)

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}
