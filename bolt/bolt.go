package bolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asdine/storm/v3"
	bolt "go.etcd.io/bbolt"

	"github.com/quantonganh/newsroom"
)

// lockTimeout bounds the wait for the file lock held by another process
const lockTimeout = time.Second

// DB wraps a storm database file
type DB struct {
	path    string
	stormDB *storm.DB
	ctx     context.Context
	cancel  func()
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

// Open opens the file and creates the subscriber bucket and its indexes
func (db *DB) Open() error {
	if db.path == "" {
		return errors.New("bolt: path required")
	}
	if db.stormDB != nil {
		return nil
	}

	stormDB, err := storm.Open(db.path, storm.BoltOptions(0600, &bolt.Options{Timeout: lockTimeout}))
	if err != nil {
		return fmt.Errorf("bolt: open %s: %w", db.path, err)
	}

	if err := stormDB.Init(&newsroom.Subscriber{}); err != nil {
		_ = stormDB.Close()
		return fmt.Errorf("bolt: init subscribers: %w", err)
	}
	db.stormDB = stormDB

	return nil
}

// Close closes the file
func (db *DB) Close() error {
	db.cancel()

	if db.stormDB == nil {
		return nil
	}

	err := db.stormDB.Close()
	db.stormDB = nil
	return err
}
