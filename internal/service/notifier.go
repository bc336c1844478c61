package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/agentcoord/agentcoord/internal/port/broadcast"
	"github.com/agentcoord/agentcoord/internal/port/messagequeue"
	"github.com/agentcoord/agentcoord/internal/resilience"
)

// Notifier fans lifecycle events out to the message queue and the WebSocket
// hub. Delivery is best-effort: a failed publish is logged and never fails
// the operation that produced the event. Queue publication goes through a
// circuit breaker so a downed broker does not add latency to every call.
type Notifier struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
	hub     broadcast.Broadcaster
	log     *slog.Logger
}

// NewNotifier creates a Notifier. queue and hub may each be nil; the
// corresponding sink is simply skipped.
func NewNotifier(queue messagequeue.Queue, breaker *resilience.Breaker, hub broadcast.Broadcaster, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{queue: queue, breaker: breaker, hub: hub, log: log}
}

// RequestPlanned publishes requests.planned.
func (n *Notifier) RequestPlanned(ctx context.Context, requestID string, taskCount int) {
	n.emit(ctx, messagequeue.SubjectRequestPlanned, broadcast.EventRequestPlanned,
		messagequeue.RequestPlannedPayload{RequestID: requestID, TaskCount: taskCount})
}

// RequestCompleted publishes requests.completed.
func (n *Notifier) RequestCompleted(ctx context.Context, requestID string, approved bool) {
	n.emit(ctx, messagequeue.SubjectRequestCompleted, broadcast.EventRequestCompleted,
		messagequeue.RequestCompletedPayload{RequestID: requestID, Approved: approved})
}

// TaskAssigned publishes tasks.assigned.
func (n *Notifier) TaskAssigned(ctx context.Context, taskID, requestID, agentID string) {
	n.emit(ctx, messagequeue.SubjectTaskAssigned, broadcast.EventTaskAssigned,
		messagequeue.TaskAssignedPayload{TaskID: taskID, RequestID: requestID, AgentID: agentID})
}

// TaskDone publishes tasks.done.
func (n *Notifier) TaskDone(ctx context.Context, taskID, requestID, agentID string) {
	n.emit(ctx, messagequeue.SubjectTaskDone, broadcast.EventTaskDone,
		messagequeue.TaskDonePayload{TaskID: taskID, RequestID: requestID, AgentID: agentID})
}

// TaskApproved publishes tasks.approved.
func (n *Notifier) TaskApproved(ctx context.Context, taskID, requestID string) {
	n.emit(ctx, messagequeue.SubjectTaskApproved, broadcast.EventTaskApproved,
		messagequeue.TaskApprovedPayload{TaskID: taskID, RequestID: requestID})
}

// TasksAdded publishes tasks.added.
func (n *Notifier) TasksAdded(ctx context.Context, requestID string, taskIDs []string) {
	n.emit(ctx, messagequeue.SubjectTaskAdded, broadcast.EventTasksAdded,
		messagequeue.TaskAddedPayload{RequestID: requestID, TaskIDs: taskIDs})
}

// TaskDeleted publishes tasks.deleted.
func (n *Notifier) TaskDeleted(ctx context.Context, taskID, requestID string) {
	n.emit(ctx, messagequeue.SubjectTaskDeleted, broadcast.EventTaskDeleted,
		messagequeue.TaskDeletedPayload{TaskID: taskID, RequestID: requestID})
}

// DataCleared publishes requests.cleared after a full wipe.
func (n *Notifier) DataCleared(ctx context.Context, requestCount, taskCount int) {
	n.emit(ctx, messagequeue.SubjectDataCleared, broadcast.EventDataCleared,
		messagequeue.DataClearedPayload{RequestCount: requestCount, TaskCount: taskCount})
}

func (n *Notifier) emit(ctx context.Context, subject, eventType string, payload any) {
	if n == nil {
		return
	}

	if n.hub != nil {
		n.hub.BroadcastEvent(ctx, eventType, payload)
	}

	if n.queue == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("marshal event payload", "subject", subject, "error", err)
		return
	}

	publish := func() error { return n.queue.Publish(ctx, subject, data) }
	if n.breaker != nil {
		err = n.breaker.Execute(publish)
	} else {
		err = publish()
	}
	if err != nil {
		n.log.Error("publish event", "subject", subject, "error", err)
	}
}
