// Package activity provides best-effort activity logging. Recording is
// fire-and-forget: entries flow through a bounded queue drained by a
// background goroutine, so a log-store outage can never stall or fail
// the user action that triggered the entry.
package activity

import (
	"context"
	"sync"
	"time"

	"github.com/apocalipssi/docanalyzer/internal/models"
	"go.uber.org/zap"
)

// DefaultQueueSize bounds the in-process entry queue.
const DefaultQueueSize = 256

// Sink receives drained entries. The database-backed sink and the
// RabbitMQ transport both implement it.
type Sink interface {
	Write(ctx context.Context, entry *models.ActivityEntry) error
}

// Recorder is the write side of the activity log.
type Recorder interface {
	// Record never blocks and never reports failure to the caller.
	Record(activityType models.ActivityType, userID string, details map[string]any)
}

// AsyncRecorder queues entries and drains them in the background.
type AsyncRecorder struct {
	entries chan *models.ActivityEntry
	sink    Sink
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
}

// NewAsyncRecorder starts the drain goroutine. Close flushes pending
// entries and stops it.
func NewAsyncRecorder(sink Sink, queueSize int, logger *zap.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	r := &AsyncRecorder{
		entries: make(chan *models.ActivityEntry, queueSize),
		sink:    sink,
		logger:  logger,
		done:    make(chan struct{}),
	}

	go r.drain()

	return r
}

// Record enqueues one entry. When the queue is full the entry is dropped
// and the drop is logged; the primary action is never affected.
func (r *AsyncRecorder) Record(activityType models.ActivityType, userID string, details map[string]any) {
	if userID == "" {
		userID = models.AnonymousUserID
	}

	entry := &models.ActivityEntry{
		Timestamp:    time.Now(),
		ActivityType: activityType,
		UserID:       userID,
		Details:      details,
	}

	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("activity_log_queue_full_entry_dropped",
			zap.String("activity_type", string(activityType)),
			zap.String("user_id", userID),
		)
	}
}

// Close stops accepting entries, flushes what is queued and waits for
// the drain goroutine to finish.
func (r *AsyncRecorder) Close() {
	r.once.Do(func() {
		close(r.entries)
		<-r.done
	})
}

func (r *AsyncRecorder) drain() {
	defer close(r.done)

	for entry := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.sink.Write(ctx, entry); err != nil {
			// Swallowed: log writes are best-effort.
			r.logger.Warn("failed_to_write_activity_log",
				zap.String("activity_type", string(entry.ActivityType)),
				zap.Error(err),
			)
		}
		cancel()
	}
}
