// Package task defines the Task domain entity and its state machine.
package task

import "time"

// Status represents the lifecycle state of a task. Transitions move
// strictly forward: PENDING → ASSIGNED → DONE → APPROVED.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAssigned Status = "ASSIGNED"
	StatusDone     Status = "DONE"
	StatusApproved Status = "APPROVED"
)

// Task represents an individually assignable unit of work owned by exactly
// one Request. The RequestID field is a back-reference only; the Request
// owns the Task.
type Task struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"requestId"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	AgentTypeHint    string     `json:"agentTypeHint,omitempty"`
	Status           Status     `json:"status"`
	AssignedAgentID  string     `json:"assignedAgentId,omitempty"`
	CompletedAt      *time.Time `json:"completedAt"`
	CompletedDetails string     `json:"completedDetails,omitempty"`
	Approved         bool       `json:"approved"`
	ApprovedAt       *time.Time `json:"approvedAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Spec holds the caller-supplied fields for a new task.
type Spec struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	AgentTypeHint string `json:"agentTypeHint,omitempty"`
}

// Progress is the flattened read-only view of a single task, attached to
// every facade response so callers can reconcile state between calls.
type Progress struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Status          Status `json:"status"`
	AssignedAgentID string `json:"assignedAgentId,omitempty"`
	Approved        bool   `json:"approved"`
}

// Assignable reports whether the task can still be handed to an agent.
func (t *Task) Assignable() bool {
	return t.Status == StatusPending && t.AssignedAgentID == ""
}

// Finished reports whether the task has reached DONE or APPROVED.
func (t *Task) Finished() bool {
	return t.Status == StatusDone || t.Status == StatusApproved
}
