package messagequeue

// RequestPlannedPayload is the schema for requests.planned messages.
type RequestPlannedPayload struct {
	RequestID string `json:"request_id"`
	TaskCount int    `json:"task_count"`
}

// RequestCompletedPayload is the schema for requests.completed messages.
// Approved reports whether completion came through the explicit approval
// gate (true) or the auto-completion side effect of the last mark-done
// (false).
type RequestCompletedPayload struct {
	RequestID string `json:"request_id"`
	Approved  bool   `json:"approved"`
}

// TaskAssignedPayload is the schema for tasks.assigned messages.
type TaskAssignedPayload struct {
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
}

// TaskDonePayload is the schema for tasks.done messages.
type TaskDonePayload struct {
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id"`
	AgentID   string `json:"agent_id"`
}

// TaskApprovedPayload is the schema for tasks.approved messages.
type TaskApprovedPayload struct {
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id"`
}

// TaskAddedPayload is the schema for tasks.added messages.
type TaskAddedPayload struct {
	RequestID string   `json:"request_id"`
	TaskIDs   []string `json:"task_ids"`
}

// TaskDeletedPayload is the schema for tasks.deleted messages.
type TaskDeletedPayload struct {
	TaskID    string `json:"task_id"`
	RequestID string `json:"request_id"`
}

// DataClearedPayload is the schema for requests.cleared messages.
type DataClearedPayload struct {
	RequestCount int `json:"request_count"`
	TaskCount    int `json:"task_count"`
}
