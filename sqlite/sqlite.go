package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantonganh/newsroom"
)

//go:embed migration/*.sql
var migrationFS embed.FS

const (
	migrationDir = "migration"
	busyTimeout  = 5 * time.Second
)

// DB wraps a SQLite connection pool and applies the embedded migrations on open.
type DB struct {
	sqlDB  *sql.DB
	ctx    context.Context
	cancel func()

	path string
}

var _ newsroom.Database = (*DB)(nil)

// NewDB returns a database backed by the file at path
func NewDB(path string) *DB {
	db := &DB{
		path: path,
	}

	db.ctx, db.cancel = context.WithCancel(context.Background())

	return db
}

func (db *DB) dsn() string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		db.path, busyTimeout.Milliseconds())
}

// Open opens the file and brings the schema up to date. Calling it twice is a no-op.
func (db *DB) Open() error {
	if db.path == "" {
		return errors.New("sqlite: path required")
	}
	if db.sqlDB != nil {
		return nil
	}

	sqlDB, err := sql.Open("sqlite3", db.dsn())
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", db.path, err)
	}
	// one writer at a time
	sqlDB.SetMaxOpenConns(1)
	db.sqlDB = sqlDB

	if err := db.migrate(db.ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}

	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at DATETIME NOT NULL
);`
	if _, err := db.sqlDB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	// ReadDir returns entries sorted by name
	entries, err := fs.ReadDir(migrationFS, migrationDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		if err := db.apply(ctx, path.Join(migrationDir, entry.Name())); err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}

	return nil
}

// apply runs one migration file inside a transaction unless it was applied before
func (db *DB) apply(ctx context.Context, name string) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var applied bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = ?)`, name).Scan(&applied)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	script, err := fs.ReadFile(migrationFS, name)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`, name, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit()
}

// Close cancels in-flight work and closes the pool
func (db *DB) Close() error {
	db.cancel()

	if db.sqlDB == nil {
		return nil
	}

	if err := db.sqlDB.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	db.sqlDB = nil

	return nil
}
