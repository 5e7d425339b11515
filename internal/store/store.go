package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// Querier is satisfied by both *sql.DB and *sql.Tx. Repository methods take
// one so the caller decides whether a call auto-commits or joins a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

const busyTimeout = 5 * time.Second

// pragma is a connection setting carried in the DSN and checked on open.
type pragma struct {
	name  string
	value string
}

var pragmas = []pragma{
	{"foreign_keys", "1"},
	{"busy_timeout", fmt.Sprint(busyTimeout.Milliseconds())},
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
}

// Store owns the SQLite handle. The pool holds a single connection.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	st, err := OpenWithoutMigrations(path)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(st.db); err != nil {
		return nil, errors.Join(err, st.Close())
	}
	return st, nil
}

// OpenWithoutMigrations opens the database without touching its schema.
func OpenWithoutMigrations(path string) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, p := range pragmas {
		if _, err := db.Exec("PRAGMA " + p.name + " = " + p.value); err != nil {
			return nil, errors.Join(fmt.Errorf("pragma %s: %w", p.name, err), db.Close())
		}
	}
	return &Store{db: db}, nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", errors.New("db path is required")
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p.name+"("+p.value+")")
	}
	return (&url.URL{Scheme: "file", Path: path, RawQuery: q.Encode()}).String(), nil
}

// DB returns the auto-commit querier.
func (s *Store) DB() Querier { return s.db }

// SQL exposes the raw handle for migration tooling.
func (s *Store) SQL() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginTx opens a transaction the caller must Commit or Rollback. Prefer
// WithTx unless the transaction spans calls that cannot share a closure.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}

// WithTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if done {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	done = true
	return nil
}
