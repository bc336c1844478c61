// Package broadcast defines the port for pushing real-time events to
// connected observers (dashboards, supervisors).
package broadcast

import "context"

// Event type constants for broadcast messages.
const (
	EventRequestPlanned   = "request.planned"
	EventRequestCompleted = "request.completed"
	EventTaskAssigned     = "task.assigned"
	EventTaskDone         = "task.done"
	EventTaskApproved     = "task.approved"
	EventTasksAdded       = "tasks.added"
	EventTaskDeleted      = "task.deleted"
	EventDataCleared      = "data.cleared"
)

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
