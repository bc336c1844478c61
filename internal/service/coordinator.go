// Package service implements the request/task lifecycle engine and the
// coordinator facade invoked by the MCP and HTTP adapters.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/agentcoord/agentcoord/internal/adapter/otel"
	"github.com/agentcoord/agentcoord/internal/domain"
	"github.com/agentcoord/agentcoord/internal/domain/agent"
	"github.com/agentcoord/agentcoord/internal/domain/request"
	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/port/database"
)

// ClearConfirmation is the exact string a caller must supply to wipe all
// coordinator state.
const ClearConfirmation = "CLEAR_ALL_MY_DATA"

// Coordinator owns the authoritative in-memory model and serializes every
// mutation under one lock. Each mutating operation follows the same shape:
// validate against the live model, apply the change to a staged clone,
// persist the clone, then swap it in. A failed persist leaves the live
// model untouched.
type Coordinator struct {
	mu       sync.Mutex
	store    database.Store
	requests map[string]request.Request
	tasks    map[string]task.Task

	notifier *Notifier
	metrics  *otel.Metrics
	log      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewCoordinator loads the persisted model and returns a ready coordinator.
// notifier and metrics may be nil.
func NewCoordinator(ctx context.Context, store database.Store, notifier *Notifier, metrics *otel.Metrics, log *slog.Logger) (*Coordinator, error) {
	if log == nil {
		log = slog.Default()
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	log.Info("model loaded", "requests", len(snap.Requests), "tasks", len(snap.Tasks))

	return &Coordinator{
		store:    store,
		requests: snap.Requests,
		tasks:    snap.Tasks,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// RequestPlanning registers a new request with its initial task list.
// Entries missing a title get a positional placeholder instead of being
// rejected.
func (c *Coordinator) RequestPlanning(ctx context.Context, originalRequest, splitDetails string, specs []task.Spec) (*PlanResult, error) {
	defer c.observe(ctx, "request_planning", c.nowFn())

	if originalRequest == "" {
		return nil, fmt.Errorf("originalRequest is required: %w", domain.ErrValidation)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("tasks must be a non-empty list: %w", domain.ErrValidation)
	}

	c.mu.Lock()
	reqs, tasks := c.cloneModel()
	now := c.now()

	requestID := "req-" + c.newID()
	r := request.Request{
		ID:              requestID,
		OriginalRequest: originalRequest,
		SplitDetails:    splitDetails,
		Status:          request.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for i, spec := range specs {
		title := spec.Title
		if title == "" {
			title = fmt.Sprintf("Task #%d", i+1)
		}
		taskID := "task-" + c.newID()
		tasks[taskID] = task.Task{
			ID:            taskID,
			RequestID:     requestID,
			Title:         title,
			Description:   spec.Description,
			AgentTypeHint: spec.AgentTypeHint,
			Status:        task.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		r.TaskIDs = append(r.TaskIDs, taskID)
	}
	reqs[requestID] = r

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	c.notifier.RequestPlanned(ctx, requestID, len(specs))
	c.count(ctx, c.metricsOrNil().RequestsPlanned)

	return &PlanResult{
		RequestID:     requestID,
		TaskCount:     len(specs),
		Message:       fmt.Sprintf("request registered with %d tasks", len(specs)),
		TasksProgress: progress,
	}, nil
}

// GetNextTask hands the caller at most one assignable task, selected by the
// three-tier affinity rule. When nothing is assignable it reports whether
// any assignable work remains for anyone.
func (c *Coordinator) GetNextTask(ctx context.Context, requestID, agentID string) (*NextTaskResult, error) {
	ctx, span := otel.StartAssignSpan(ctx, requestID, agentID)
	defer span.End()
	defer c.observe(ctx, "get_next_task", c.nowFn())

	if agentID == "" {
		return nil, fmt.Errorf("agentId is required: %w", domain.ErrValidation)
	}

	c.mu.Lock()
	r, ok := c.requests[requestID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}

	agentType := agent.InferType(agentID)
	taskID, found := c.selectTaskLocked(r, agentType)
	if !found {
		allDone := true
		for _, id := range r.TaskIDs {
			if t, ok := c.tasks[id]; ok && t.Assignable() {
				allDone = false
				break
			}
		}
		progress := c.progressLocked(requestID)
		c.mu.Unlock()

		msg := "no task currently available for this agent"
		if allDone {
			msg = "no assignable tasks remain"
		}
		return &NextTaskResult{
			Success:       true,
			HasNextTask:   false,
			AllTasksDone:  allDone,
			Message:       msg,
			TasksProgress: progress,
		}, nil
	}

	reqs, tasks := c.cloneModel()
	t := tasks[taskID]
	t.Status = task.StatusAssigned
	t.AssignedAgentID = agentID
	t.UpdatedAt = c.now()
	tasks[taskID] = t

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	c.notifier.TaskAssigned(ctx, taskID, requestID, agentID)
	c.count(ctx, c.metricsOrNil().TasksAssigned)

	return &NextTaskResult{
		Success:       true,
		HasNextTask:   true,
		Task:          &t,
		Message:       "task assigned",
		TasksProgress: progress,
	}, nil
}

// selectTaskLocked walks the request's tasks in creation order and returns
// the first assignable candidate for the given agent type. Tier 1 takes an
// exact hint match, tier 2 takes generic tasks (plus pm-hinted tasks for pm
// agents), tier 3 lets an agent of unknown type take anything.
func (c *Coordinator) selectTaskLocked(r request.Request, agentType agent.Type) (string, bool) {
	if agentType != agent.TypeUnknown {
		for _, id := range r.TaskIDs {
			t, ok := c.tasks[id]
			if ok && t.Assignable() && t.AgentTypeHint == string(agentType) {
				return id, true
			}
		}
	}

	for _, id := range r.TaskIDs {
		t, ok := c.tasks[id]
		if !ok || !t.Assignable() {
			continue
		}
		if t.AgentTypeHint == "" {
			return id, true
		}
		if agentType == agent.TypePM && t.AgentTypeHint == string(agent.TypePM) {
			return id, true
		}
	}

	if agentType == agent.TypeUnknown {
		for _, id := range r.TaskIDs {
			if t, ok := c.tasks[id]; ok && t.Assignable() {
				return id, true
			}
		}
	}

	return "", false
}

// MarkTaskDone records completion by the assigned agent. Calls on a task
// that is already DONE or APPROVED succeed without touching the completion
// stamps, tolerating at-least-once delivery from callers.
func (c *Coordinator) MarkTaskDone(ctx context.Context, requestID, taskID, agentID, completedDetails string) (*DoneResult, error) {
	ctx, span := otel.StartOpSpan(ctx, "mark_task_done", requestID)
	defer span.End()
	defer c.observe(ctx, "mark_task_done", c.nowFn())

	if agentID == "" {
		return nil, fmt.Errorf("agentId is required: %w", domain.ErrValidation)
	}

	c.mu.Lock()
	r, ok := c.requests[requestID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	t, ok := c.tasks[taskID]
	if !ok || t.RequestID != requestID {
		c.mu.Unlock()
		return nil, fmt.Errorf("task %s in request %s: %w", taskID, requestID, domain.ErrNotFound)
	}

	if t.Finished() {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &DoneResult{
			Message:       "task already completed",
			Status:        t.Status,
			TasksProgress: progress,
		}, nil
	}

	if t.Status != task.StatusAssigned {
		c.mu.Unlock()
		return nil, fmt.Errorf("task %s has not been assigned: %w", taskID, domain.ErrInvalidState)
	}
	if t.AssignedAgentID != agentID {
		c.mu.Unlock()
		return nil, fmt.Errorf("task %s is assigned to a different agent: %w", taskID, domain.ErrInvalidState)
	}

	reqs, tasks := c.cloneModel()
	now := c.now()

	t = tasks[taskID]
	t.Status = task.StatusDone
	t.CompletedAt = &now
	t.CompletedDetails = completedDetails
	t.UpdatedAt = now
	tasks[taskID] = t

	// Opportunistic request completion: every owned task finished means
	// no more work will arrive through this request.
	requestCompleted := false
	allFinished := true
	for _, id := range r.TaskIDs {
		if owned, ok := tasks[id]; ok && !owned.Finished() {
			allFinished = false
			break
		}
	}
	if allFinished && len(r.TaskIDs) > 0 {
		staged := reqs[requestID]
		if staged.Status != request.StatusCompleted {
			staged.Status = request.StatusCompleted
			staged.UpdatedAt = now
			reqs[requestID] = staged
			requestCompleted = true
		}
	}

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	c.notifier.TaskDone(ctx, taskID, requestID, agentID)
	c.count(ctx, c.metricsOrNil().TasksDone)
	if requestCompleted {
		c.notifier.RequestCompleted(ctx, requestID, false)
		c.count(ctx, c.metricsOrNil().RequestsCompleted)
	}

	return &DoneResult{
		Message:       "task marked done",
		Status:        task.StatusDone,
		TasksProgress: progress,
	}, nil
}

// ApproveTaskCompletion approves a single DONE task. State guard failures
// come back as success=false results rather than errors.
func (c *Coordinator) ApproveTaskCompletion(ctx context.Context, requestID, taskID string) (*ApproveTaskResult, error) {
	defer c.observe(ctx, "approve_task_completion", c.nowFn())

	c.mu.Lock()
	if _, ok := c.requests[requestID]; !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	t, ok := c.tasks[taskID]
	if !ok || t.RequestID != requestID {
		c.mu.Unlock()
		return nil, fmt.Errorf("task %s in request %s: %w", taskID, requestID, domain.ErrNotFound)
	}

	if t.Approved {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &ApproveTaskResult{
			Success:       false,
			Message:       "task already approved",
			Task:          &t,
			TasksProgress: progress,
		}, nil
	}
	if t.Status != task.StatusDone {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &ApproveTaskResult{
			Success:       false,
			Message:       "task is not done yet",
			Task:          &t,
			TasksProgress: progress,
		}, nil
	}

	reqs, tasks := c.cloneModel()
	now := c.now()

	t = tasks[taskID]
	t.Status = task.StatusApproved
	t.Approved = true
	t.ApprovedAt = &now
	t.UpdatedAt = now
	tasks[taskID] = t

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	c.notifier.TaskApproved(ctx, taskID, requestID)
	c.count(ctx, c.metricsOrNil().TasksApproved)

	return &ApproveTaskResult{
		Success:       true,
		Message:       "task approved",
		Task:          &t,
		TasksProgress: progress,
	}, nil
}

// ApproveRequestCompletion asserts the strong completion guarantee: every
// owned task finished and individually approved. It is idempotent on an
// already COMPLETED request as long as the gate still holds.
func (c *Coordinator) ApproveRequestCompletion(ctx context.Context, requestID string) (*ApproveRequestResult, error) {
	ctx, span := otel.StartOpSpan(ctx, "approve_request_completion", requestID)
	defer span.End()
	defer c.observe(ctx, "approve_request_completion", c.nowFn())

	c.mu.Lock()
	r, ok := c.requests[requestID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}

	gate := len(r.TaskIDs) > 0
	for _, id := range r.TaskIDs {
		t, ok := c.tasks[id]
		if !ok {
			continue
		}
		if !t.Finished() || !t.Approved {
			gate = false
			break
		}
	}

	if !gate {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &ApproveRequestResult{
			Success:       false,
			Message:       "not all tasks are done and approved",
			TasksProgress: progress,
		}, nil
	}

	alreadyCompleted := r.Status == request.StatusCompleted

	reqs, tasks := c.cloneModel()
	staged := reqs[requestID]
	staged.Status = request.StatusCompleted
	staged.UpdatedAt = c.now()
	reqs[requestID] = staged

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	if !alreadyCompleted {
		c.notifier.RequestCompleted(ctx, requestID, true)
		c.count(ctx, c.metricsOrNil().RequestsCompleted)
	}

	return &ApproveRequestResult{
		Success:       true,
		Message:       "request completed and approved",
		TasksProgress: progress,
	}, nil
}

// AddTasksToRequest appends new PENDING tasks. A COMPLETED request reopens
// to PENDING since assignable work exists again.
func (c *Coordinator) AddTasksToRequest(ctx context.Context, requestID string, specs []task.Spec) (*AddTasksResult, error) {
	defer c.observe(ctx, "add_tasks_to_request", c.nowFn())

	if len(specs) == 0 {
		return nil, fmt.Errorf("tasks must be a non-empty list: %w", domain.ErrValidation)
	}

	c.mu.Lock()
	if _, ok := c.requests[requestID]; !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}

	reqs, tasks := c.cloneModel()
	now := c.now()

	staged := reqs[requestID]
	var added []task.Task
	var addedIDs []string
	for i, spec := range specs {
		title := spec.Title
		if title == "" {
			title = fmt.Sprintf("Task #%d", i+1)
		}
		taskID := "task-" + c.newID()
		t := task.Task{
			ID:            taskID,
			RequestID:     requestID,
			Title:         title,
			Description:   spec.Description,
			AgentTypeHint: spec.AgentTypeHint,
			Status:        task.StatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		tasks[taskID] = t
		staged.TaskIDs = append(staged.TaskIDs, taskID)
		added = append(added, t)
		addedIDs = append(addedIDs, taskID)
	}

	staged.UpdatedAt = now
	if staged.Status == request.StatusCompleted {
		staged.Status = request.StatusPending
	}
	reqs[requestID] = staged

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	c.notifier.TasksAdded(ctx, requestID, addedIDs)

	return &AddTasksResult{
		Success:       true,
		Message:       fmt.Sprintf("%d tasks added", len(added)),
		AddedTasks:    added,
		TasksProgress: progress,
	}, nil
}

// UpdateTask overwrites title and/or description of a task that is not yet
// DONE. Nil fields are left unchanged.
func (c *Coordinator) UpdateTask(ctx context.Context, requestID, taskID string, title, description *string) (*UpdateTaskResult, error) {
	defer c.observe(ctx, "update_task", c.nowFn())

	c.mu.Lock()
	if _, ok := c.requests[requestID]; !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	t, ok := c.tasks[taskID]
	if !ok || t.RequestID != requestID {
		c.mu.Unlock()
		return nil, fmt.Errorf("task %s in request %s: %w", taskID, requestID, domain.ErrNotFound)
	}

	if t.Finished() {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &UpdateTaskResult{
			Success:       false,
			Message:       "completed tasks cannot be updated",
			Task:          &t,
			TasksProgress: progress,
		}, nil
	}

	updated := false
	reqs, tasks := c.cloneModel()
	staged := tasks[taskID]
	if title != nil && *title != staged.Title {
		staged.Title = *title
		updated = true
	}
	if description != nil && *description != staged.Description {
		staged.Description = *description
		updated = true
	}

	if !updated {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &UpdateTaskResult{
			Success:       false,
			Message:       "nothing to update",
			Task:          &t,
			TasksProgress: progress,
		}, nil
	}

	staged.UpdatedAt = c.now()
	tasks[taskID] = staged

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	return &UpdateTaskResult{
		Success:       true,
		Message:       "task updated",
		Task:          &staged,
		TasksProgress: progress,
	}, nil
}

// DeleteTask removes a task from the model and from its request's list.
// A task that has been both completed and approved is audit history and
// cannot be deleted.
func (c *Coordinator) DeleteTask(ctx context.Context, requestID, taskID string) (*DeleteTaskResult, error) {
	defer c.observe(ctx, "delete_task", c.nowFn())

	c.mu.Lock()
	if _, ok := c.requests[requestID]; !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	t, ok := c.tasks[taskID]
	if !ok || t.RequestID != requestID {
		c.mu.Unlock()
		return nil, fmt.Errorf("task %s in request %s: %w", taskID, requestID, domain.ErrNotFound)
	}

	if t.Finished() && t.Approved {
		progress := c.progressLocked(requestID)
		c.mu.Unlock()
		return &DeleteTaskResult{
			Success:       false,
			Message:       "completed and approved tasks cannot be deleted",
			TasksProgress: progress,
		}, nil
	}

	reqs, tasks := c.cloneModel()
	delete(tasks, taskID)

	staged := reqs[requestID]
	for i, id := range staged.TaskIDs {
		if id == taskID {
			staged.TaskIDs = append(staged.TaskIDs[:i], staged.TaskIDs[i+1:]...)
			break
		}
	}
	staged.UpdatedAt = c.now()
	reqs[requestID] = staged

	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	c.notifier.TaskDeleted(ctx, taskID, requestID)

	return &DeleteTaskResult{
		Success:       true,
		Message:       "task deleted",
		TasksProgress: progress,
	}, nil
}

// ListRequests returns per-request aggregate summaries, newest first.
func (c *Coordinator) ListRequests(ctx context.Context) (*ListResult, error) {
	defer c.observe(ctx, "list_requests", c.nowFn())

	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := make([]request.Summary, 0, len(c.requests))
	for _, r := range c.requests {
		s := request.Summary{
			ID:              r.ID,
			OriginalRequest: r.OriginalRequest,
			Status:          r.Status,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
			TotalTasks:      len(r.TaskIDs),
		}
		for _, id := range r.TaskIDs {
			t, ok := c.tasks[id]
			if !ok {
				continue
			}
			if t.AssignedAgentID != "" {
				s.AssignedTasks++
			}
			if t.Finished() {
				s.DoneTasks++
			}
			if t.Approved {
				s.ApprovedTasks++
			}
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return &ListResult{Requests: summaries}, nil
}

// OpenTaskDetails looks a task up by ID alone, independent of any request.
func (c *Coordinator) OpenTaskDetails(ctx context.Context, taskID string) (*task.Task, error) {
	defer c.observe(ctx, "open_task_details", c.nowFn())

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return &t, nil
}

// ClearAllData wipes every request and task. The caller must pass the exact
// confirmation string.
func (c *Coordinator) ClearAllData(ctx context.Context, confirmation string) (*ClearResult, error) {
	defer c.observe(ctx, "clear_all_data", c.nowFn())

	if confirmation != ClearConfirmation {
		return nil, fmt.Errorf("confirmation must be %q: %w", ClearConfirmation, domain.ErrValidation)
	}

	c.mu.Lock()
	requestCount := len(c.requests)
	taskCount := len(c.tasks)
	reqs := make(map[string]request.Request)
	tasks := make(map[string]task.Task)
	if err := c.commit(ctx, reqs, tasks); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	c.notifier.DataCleared(ctx, requestCount, taskCount)
	c.log.Warn("all coordinator data cleared", "requests", requestCount, "tasks", taskCount)

	return &ClearResult{Success: true, Message: "all data cleared"}, nil
}

// cloneModel returns deep-enough copies of both maps for staging: entities
// are values, and TaskIDs slices are copied so staged appends and removals
// never alias the live model. Must hold mu.
func (c *Coordinator) cloneModel() (map[string]request.Request, map[string]task.Task) {
	reqs := make(map[string]request.Request, len(c.requests))
	for id, r := range c.requests {
		r.TaskIDs = append([]string(nil), r.TaskIDs...)
		reqs[id] = r
	}
	tasks := make(map[string]task.Task, len(c.tasks))
	for id, t := range c.tasks {
		tasks[id] = t
	}
	return reqs, tasks
}

// commit persists the staged model and swaps it in. Must hold mu.
func (c *Coordinator) commit(ctx context.Context, reqs map[string]request.Request, tasks map[string]task.Task) error {
	snap := &database.Snapshot{Requests: reqs, Tasks: tasks}
	if err := c.store.Replace(ctx, snap); err != nil {
		return fmt.Errorf("persist model: %w", err)
	}
	c.requests = reqs
	c.tasks = tasks
	return nil
}

func (c *Coordinator) nowFn() time.Time {
	return c.now()
}

func (c *Coordinator) metricsOrNil() *otel.Metrics {
	if c.metrics == nil {
		return &otel.Metrics{}
	}
	return c.metrics
}

func (c *Coordinator) count(ctx context.Context, counter metric.Int64Counter) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1)
}

func (c *Coordinator) observe(ctx context.Context, op string, start time.Time) {
	if c.metrics == nil || c.metrics.OpDuration == nil {
		return
	}
	c.metrics.OpDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("op", op)))
}
