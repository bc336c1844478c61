// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to lifecycle
// events. Publication is best-effort from the coordinator's point of view:
// a failed publish never fails the operation that produced the event.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for lifecycle events published by the coordinator.
const (
	SubjectRequestPlanned   = "requests.planned"
	SubjectRequestCompleted = "requests.completed"
	SubjectTaskAssigned     = "tasks.assigned"
	SubjectTaskDone         = "tasks.done"
	SubjectTaskApproved     = "tasks.approved"
	SubjectTaskAdded        = "tasks.added"
	SubjectTaskDeleted      = "tasks.deleted"
	SubjectDataCleared      = "requests.cleared"
)
