// Package request defines the Request domain entity.
package request

import "time"

// Status represents the state of a request.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
)

// Request is a top-level unit of work submitted by a caller, composed of
// one or more tasks. TaskIDs preserves creation order, which drives FIFO
// scheduling.
type Request struct {
	ID              string    `json:"id"`
	OriginalRequest string    `json:"originalRequest"`
	SplitDetails    string    `json:"splitDetails,omitempty"`
	Status          Status    `json:"status"`
	TaskIDs         []string  `json:"taskIds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Summary is the per-request aggregate returned by list_requests.
type Summary struct {
	ID              string    `json:"id"`
	OriginalRequest string    `json:"originalRequest"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	TotalTasks      int       `json:"totalTasks"`
	AssignedTasks   int       `json:"assignedTasks"`
	DoneTasks       int       `json:"doneTasks"`
	ApprovedTasks   int       `json:"approvedTasks"`
}
