package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/quantonganh/newsroom"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	connectTimeout = 10 * time.Second
	migrationTable = "schema_migrations"
)

// DB represents the database connection pool.
type DB struct {
	pool   *pgxpool.Pool
	ctx    context.Context
	cancel func()
	logger zerolog.Logger

	url string
}

var _ newsroom.Database = (*DB)(nil)

// NewDB returns new database
func NewDB(url string, logger zerolog.Logger) *DB {
	db := &DB{
		url:    url,
		logger: logger,
	}

	db.ctx, db.cancel = context.WithCancel(context.Background())

	return db
}

// Open connects to the database and applies pending migrations
func (db *DB) Open() error {
	if db.url == "" {
		return errors.New("url required")
	}

	if db.pool != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(db.ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, db.url)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	db.pool = pool

	if err := db.migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	// shares the pool's connections, so it is not closed here
	sqlDB := stdlib.OpenDBFromPool(db.pool)

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(&gooseLogger{logger: db.logger})
	goose.SetTableName(migrationTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, sqlDB, "migrations")
}

// Close closes the connection pool
func (db *DB) Close() error {
	db.cancel()

	if db.pool != nil {
		db.pool.Close()
	}

	return nil
}

type gooseLogger struct {
	logger zerolog.Logger
}

func (g *gooseLogger) Printf(format string, args ...interface{}) {
	g.logger.Info().Msgf(format, args...)
}

func (g *gooseLogger) Fatalf(format string, args ...interface{}) {
	g.logger.Error().Msgf(format, args...)
}
