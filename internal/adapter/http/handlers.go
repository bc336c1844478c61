package http

import (
	"net/http"

	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Coordinator *service.Coordinator
}

type planRequestBody struct {
	OriginalRequest string      `json:"originalRequest"`
	SplitDetails    string      `json:"splitDetails"`
	Tasks           []task.Spec `json:"tasks"`
}

// PlanRequest registers a new request with its initial task list.
func (h *Handlers) PlanRequest(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[planRequestBody](w, r)
	if !ok {
		return
	}
	if !requireField(w, body.OriginalRequest, "originalRequest") {
		return
	}

	res, err := h.Coordinator.RequestPlanning(r.Context(), body.OriginalRequest, body.SplitDetails, body.Tasks)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListRequests returns all requests with per-request task counts.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	res, err := h.Coordinator.ListRequests(r.Context())
	if err != nil {
		writeDomainError(w, err, "requests not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type nextTaskBody struct {
	AgentID string `json:"agentId"`
}

// NextTask claims the next assignable task for the calling agent.
func (h *Handlers) NextTask(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")
	body, ok := readJSON[nextTaskBody](w, r)
	if !ok {
		return
	}
	if !requireField(w, body.AgentID, "agentId") {
		return
	}

	res, err := h.Coordinator.GetNextTask(r.Context(), requestID, body.AgentID)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type markDoneBody struct {
	AgentID          string `json:"agentId"`
	CompletedDetails string `json:"completedDetails"`
}

// MarkTaskDone reports a claimed task as completed.
func (h *Handlers) MarkTaskDone(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")
	taskID := urlParam(r, "taskID")
	body, ok := readJSON[markDoneBody](w, r)
	if !ok {
		return
	}
	if !requireField(w, body.AgentID, "agentId") {
		return
	}

	res, err := h.Coordinator.MarkTaskDone(r.Context(), requestID, taskID, body.AgentID, body.CompletedDetails)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ApproveTask approves a completed task.
func (h *Handlers) ApproveTask(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")
	taskID := urlParam(r, "taskID")

	res, err := h.Coordinator.ApproveTaskCompletion(r.Context(), requestID, taskID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ApproveRequest completes a request once every task is done and approved.
func (h *Handlers) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")

	res, err := h.Coordinator.ApproveRequestCompletion(r.Context(), requestID)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type addTasksBody struct {
	Tasks []task.Spec `json:"tasks"`
}

// AddTasks appends new tasks to an existing request.
func (h *Handlers) AddTasks(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")
	body, ok := readJSON[addTasksBody](w, r)
	if !ok {
		return
	}

	res, err := h.Coordinator.AddTasksToRequest(r.Context(), requestID, body.Tasks)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateTaskBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// UpdateTask updates title or description of a task that is not yet done.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")
	taskID := urlParam(r, "taskID")
	body, ok := readJSON[updateTaskBody](w, r)
	if !ok {
		return
	}

	res, err := h.Coordinator.UpdateTask(r.Context(), requestID, taskID, body.Title, body.Description)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteTask removes a task that is not yet completed and approved.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")
	taskID := urlParam(r, "taskID")

	res, err := h.Coordinator.DeleteTask(r.Context(), requestID, taskID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetTask looks up a single task by ID.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := urlParam(r, "taskID")

	t, err := h.Coordinator.OpenTaskDetails(r.Context(), taskID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t})
}

// RequestProgress renders the request's task table as markdown for
// display-oriented clients.
func (h *Handlers) RequestProgress(w http.ResponseWriter, r *http.Request) {
	requestID := urlParam(r, "id")

	table, err := h.Coordinator.ProgressTable(requestID)
	if err != nil {
		writeDomainError(w, err, "request not found")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(table))
}

type clearDataBody struct {
	Confirmation string `json:"confirmation"`
}

// ClearData deletes every request and task. The confirmation string must
// match exactly.
func (h *Handlers) ClearData(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[clearDataBody](w, r)
	if !ok {
		return
	}

	res, err := h.Coordinator.ClearAllData(r.Context(), body.Confirmation)
	if err != nil {
		writeDomainError(w, err, "data not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
