package service

import (
	"github.com/agentcoord/agentcoord/internal/domain/request"
	"github.com/agentcoord/agentcoord/internal/domain/task"
)

// PlanResult is returned by RequestPlanning.
type PlanResult struct {
	RequestID     string          `json:"requestId"`
	TaskCount     int             `json:"taskCount"`
	Message       string          `json:"message"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// NextTaskResult is returned by GetNextTask.
type NextTaskResult struct {
	Success       bool            `json:"success"`
	HasNextTask   bool            `json:"hasNextTask"`
	Task          *task.Task      `json:"task,omitempty"`
	AllTasksDone  bool            `json:"allTasksDone,omitempty"`
	Message       string          `json:"message,omitempty"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// DoneResult is returned by MarkTaskDone.
type DoneResult struct {
	Message       string          `json:"message"`
	Status        task.Status     `json:"status"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// ApproveTaskResult is returned by ApproveTaskCompletion.
type ApproveTaskResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Task          *task.Task      `json:"task,omitempty"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// ApproveRequestResult is returned by ApproveRequestCompletion.
type ApproveRequestResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// AddTasksResult is returned by AddTasksToRequest.
type AddTasksResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	AddedTasks    []task.Task     `json:"addedTasks,omitempty"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// UpdateTaskResult is returned by UpdateTask.
type UpdateTaskResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Task          *task.Task      `json:"task,omitempty"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// DeleteTaskResult is returned by DeleteTask.
type DeleteTaskResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	TasksProgress []task.Progress `json:"tasksProgress"`
}

// ListResult is returned by ListRequests.
type ListResult struct {
	Requests []request.Summary `json:"requests"`
}

// ClearResult is returned by ClearAllData.
type ClearResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
