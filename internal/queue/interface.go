package queue

import (
	"context"

	"github.com/apocalipssi/docanalyzer/internal/models"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetEntry() *models.ActivityEntry
}

// LogQueue is the transport for queued activity-log entries.
type LogQueue interface {
	// Publish adds an entry to the queue
	Publish(ctx context.Context, entry *models.ActivityEntry) error

	// Consume returns a channel of messages from the queue
	// Messages are delivered asynchronously as they arrive
	// The caller is responsible for acknowledging each message
	// Prefetch controls how many unacknowledged messages each consumer can hold
	// Returns a channel that will be closed when the context is cancelled or an error occurs
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}
