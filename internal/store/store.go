// Package store is the durable, transactional home for jobs, workers,
// and settings. It is the single shared resource workers and clients
// coordinate through; the lease operation it exposes is the mechanism
// that guarantees at-most-one worker executes a given job at a time.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // embedded, pure-Go SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store wraps a SQLite-backed *sql.DB. A single Store is meant to be
// shared by all goroutines in a process; cross-process coordination
// happens through the database file itself.
type Store struct {
	db *sql.DB
}

// Config configures how the store opens its backing file.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	Path string
	// MaxOpenConns caps concurrent connections (default 8). SQLite
	// serializes writers regardless, but readers benefit from more
	// than one connection under WAL.
	MaxOpenConns int
}

// Open opens (creating if necessary) the SQLite file at cfg.Path,
// applies pragmas for concurrent-reader/single-writer access, and
// brings the schema up to date via embedded goose migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: path is required")
	}

	// WAL lets readers proceed without blocking on the writer;
	// busy_timeout makes short writer contention retry in-driver
	// instead of failing immediately with SQLITE_BUSY.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 8
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// DB returns the underlying connection pool, for callers (tests,
// compliance suites) that need direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the underlying database connection(s).
func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = time.RFC3339Nano

// storedTimeLayout always writes nine fractional digits so that stored
// timestamps compare correctly as text in SQL.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
