package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/quantonganh/newsroom"
)

type subscriberService struct {
	db *DB
}

func NewSubscriberService(db *DB) newsroom.SubscriberService {
	return &subscriberService{
		db: db,
	}
}

// FindAll returns every subscriber in insertion order
func (ss *subscriberService) FindAll(ctx context.Context) ([]newsroom.Subscriber, error) {
	rows, err := ss.db.sqlDB.QueryContext(ctx, "SELECT id, name, email, created_at FROM subscribers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to find all: %w", err)
	}
	defer rows.Close()

	var subscribers []newsroom.Subscriber
	for rows.Next() {
		var s newsroom.Subscriber
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		subscribers = append(subscribers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return subscribers, nil
}

// Insert inserts new subscriber and sets its ID and creation time
func (ss *subscriberService) Insert(ctx context.Context, s *newsroom.Subscriber) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	result, err := ss.db.sqlDB.ExecContext(ctx, "INSERT INTO subscribers (name, email, created_at) VALUES (?, ?, ?)",
		s.Name, s.Email, s.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return newsroom.WrapError(newsroom.ErrConflict, "sqlite.Insert", newsroom.MsgAlreadySubscribed, err)
		}
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read id: %w", err)
	}
	s.ID = int(id)

	return nil
}
