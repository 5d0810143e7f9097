package activity

import (
	"context"

	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/models"
)

// StoreSink appends entries straight into the activity log store and
// enforces the retention policy after each append.
type StoreSink struct {
	repo database.ActivityLogRepositoryInterface
	keep int
}

// NewStoreSink creates a sink writing to the repository, keeping at most
// keep entries (0 disables pruning).
func NewStoreSink(repo database.ActivityLogRepositoryInterface, keep int) *StoreSink {
	return &StoreSink{repo: repo, keep: keep}
}

// Write appends the entry and prunes beyond the retention limit.
func (s *StoreSink) Write(ctx context.Context, entry *models.ActivityEntry) error {
	if err := s.repo.Append(ctx, entry); err != nil {
		return err
	}
	if s.keep > 0 {
		if _, err := s.repo.Prune(ctx, s.keep); err != nil {
			return err
		}
	}
	return nil
}

// Publisher publishes entries to a message queue; the worker binary
// drains the queue into the store.
type Publisher interface {
	Publish(ctx context.Context, entry *models.ActivityEntry) error
}

// QueueSink forwards entries to a queue publisher.
type QueueSink struct {
	publisher Publisher
}

// NewQueueSink creates a queue-backed sink.
func NewQueueSink(publisher Publisher) *QueueSink {
	return &QueueSink{publisher: publisher}
}

// Write publishes the entry.
func (s *QueueSink) Write(ctx context.Context, entry *models.ActivityEntry) error {
	return s.publisher.Publish(ctx, entry)
}
