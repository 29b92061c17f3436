package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quantonganh/newsroom"
)

const uniqueViolation = "23505"

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
	rows, err := ss.db.pool.Query(ctx, "SELECT id, name, email, created_at FROM subscribers ORDER BY id")
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

	return subscribers, rows.Err()
}

// Insert inserts new subscriber and sets its ID and creation time
func (ss *subscriberService) Insert(ctx context.Context, s *newsroom.Subscriber) error {
	err := ss.db.pool.QueryRow(ctx,
		"INSERT INTO subscribers (name, email) VALUES ($1, $2) RETURNING id, created_at",
		s.Name, s.Email,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return newsroom.WrapError(newsroom.ErrConflict, "postgres.Insert", newsroom.MsgAlreadySubscribed, err)
		}
		return fmt.Errorf("failed to insert: %w", err)
	}

	return nil
}
