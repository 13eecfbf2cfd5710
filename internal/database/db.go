// Package database opens the SQLite database and applies the embedded schema.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Profile selects connection PRAGMAs.
type Profile string

const (
	// ProfileStandard is the read-write profile used by the server and commands.
	ProfileStandard Profile = "standard"
	// ProfileReadOnly opens the database for queries only.
	ProfileReadOnly Profile = "readonly"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the database connection.
type DB struct {
	conn    *sql.DB
	path    string
	profile Profile
}

// Config holds database configuration.
type Config struct {
	Path    string
	Profile Profile
}

// New opens the database, creating its directory when needed.
func New(cfg Config) (*DB, error) {
	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	memory := cfg.Path == MemoryPath || cfg.Path == ""
	if !memory {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	conn, err := sql.Open("sqlite", buildConnectionString(cfg.Path, cfg.Profile, memory))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configureConnectionPool(conn, memory)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn, path: cfg.Path, profile: cfg.Profile}, nil
}

func buildConnectionString(path string, profile Profile, memory bool) string {
	if memory {
		return "file::memory:?_pragma=foreign_keys(1)"
	}

	connStr := "file:" + path + "?_pragma=journal_mode(WAL)"
	switch profile {
	case ProfileReadOnly:
		connStr += "&mode=ro"
	default:
		connStr += "&_pragma=synchronous(NORMAL)"
	}
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

// configureConnectionPool keeps a single connection for in-memory databases,
// since every new connection would see an empty database.
func configureConnectionPool(conn *sql.DB, memory bool) {
	if memory {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
		conn.SetConnMaxIdleTime(0)
		return
	}
	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(10 * time.Minute)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB used by the repositories.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies every embedded migration that has not been recorded in
// schema_migrations, each inside its own transaction.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(filepath.Base(name), ".sql")

		var exists int
		err := db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := db.apply(ctx, version, string(content)); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) apply(ctx context.Context, version, content string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to execute migration %s: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", version, err)
	}
	return nil
}

// QuickCheck pings the database.
func (db *DB) QuickCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Open is New followed by Migrate.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	db, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
