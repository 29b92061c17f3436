package bolt

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"

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

// FindAll returns every subscriber ordered by ID
func (ss *subscriberService) FindAll(ctx context.Context) ([]newsroom.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var subscribers []newsroom.Subscriber
	if err := ss.db.stormDB.All(&subscribers); err != nil {
		if stderrors.Is(err, storm.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Errorf("failed to find all: %v", err)
	}

	return subscribers, nil
}

// Insert inserts new subscriber into stormDB
func (ss *subscriberService) Insert(ctx context.Context, s *newsroom.Subscriber) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	if err := ss.db.stormDB.Save(s); err != nil {
		if stderrors.Is(err, storm.ErrAlreadyExists) {
			return newsroom.WrapError(newsroom.ErrConflict, "bolt.Insert", newsroom.MsgAlreadySubscribed, err)
		}
		return errors.Errorf("failed to save: %v", err)
	}

	return nil
}
