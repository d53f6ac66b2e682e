package deadletter

import (
	"context"
	"fmt"

	"github.com/retro-catalog/catalog-events/v1/logger"
	"github.com/retro-catalog/catalog-events/v1/postgres"
	"github.com/retro-catalog/catalog-events/v1/rabbit"
)

// Store persists dead-letter records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Count(ctx context.Context, queue string) (int64, error)
}

// GormStore keeps records in the dead_letters table.
type GormStore struct {
	db postgres.Client
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db postgres.Client) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the dead_letters table.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.AutoMigrate(ctx, &Record{})
}

func (s *GormStore) Save(ctx context.Context, record Record) error {
	if err := s.db.Create(ctx, &record); err != nil {
		return fmt.Errorf("deadletter: save %s message %q: %w", record.Queue, record.MessageID, err)
	}
	return nil
}

// Count returns the number of records for queue, all queues when queue is
// empty.
func (s *GormStore) Count(ctx context.Context, queue string) (int64, error) {
	var n int64
	var err error
	if queue == "" {
		err = s.db.Count(ctx, &Record{}, &n)
	} else {
		err = s.db.Count(ctx, &Record{}, &n, "queue = ?", queue)
	}
	if err != nil {
		return 0, fmt.Errorf("deadletter: count: %w", err)
	}
	return n, nil
}

// Hook returns a rabbit.DropHook that saves every dropped message. A failed
// save is logged; the message is dropped regardless.
func Hook(store Store, log logger.Logger) rabbit.DropHook {
	return func(ctx context.Context, dropped rabbit.DroppedMessage) {
		record := NewRecord(dropped)
		if err := store.Save(ctx, record); err != nil {
			log.ErrorWithContext(ctx, "Failed to record dead letter", err, map[string]interface{}{
				"queue":      record.Queue,
				"message_id": record.MessageID,
				"reason":     record.Reason,
			})
			return
		}
		log.WarnWithContext(ctx, "Message dead-lettered", dropped.Err, map[string]interface{}{
			"queue":          record.Queue,
			"kind":           record.Kind,
			"message_id":     record.MessageID,
			"reason":         record.Reason,
			"delivery_count": record.DeliveryCount,
		})
	}
}

// Chain runs hooks in order, skipping nil entries.
func Chain(hooks ...rabbit.DropHook) rabbit.DropHook {
	return func(ctx context.Context, dropped rabbit.DroppedMessage) {
		for _, h := range hooks {
			if h != nil {
				h(ctx, dropped)
			}
		}
	}
}
