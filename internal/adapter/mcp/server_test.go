package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	acmcp "github.com/agentcoord/agentcoord/internal/adapter/mcp"
	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/service"
)

// --- Mocks ---

type mockCoordinator struct {
	planResult    *service.PlanResult
	nextResult    *service.NextTaskResult
	doneResult    *service.DoneResult
	approveTask   *service.ApproveTaskResult
	approveReq    *service.ApproveRequestResult
	addResult     *service.AddTasksResult
	updateResult  *service.UpdateTaskResult
	deleteResult  *service.DeleteTaskResult
	listResult    *service.ListResult
	taskDetails   *task.Task
	clearResult   *service.ClearResult
	err           error
	lastSpecs     []task.Spec
	lastAgentID   string
	lastConfirm   string
	lastRequestID string
}

func (m *mockCoordinator) RequestPlanning(_ context.Context, _, _ string, specs []task.Spec) (*service.PlanResult, error) {
	m.lastSpecs = specs
	return m.planResult, m.err
}

func (m *mockCoordinator) GetNextTask(_ context.Context, requestID, agentID string) (*service.NextTaskResult, error) {
	m.lastRequestID = requestID
	m.lastAgentID = agentID
	return m.nextResult, m.err
}

func (m *mockCoordinator) MarkTaskDone(_ context.Context, _, _, agentID, _ string) (*service.DoneResult, error) {
	m.lastAgentID = agentID
	return m.doneResult, m.err
}

func (m *mockCoordinator) ApproveTaskCompletion(_ context.Context, _, _ string) (*service.ApproveTaskResult, error) {
	return m.approveTask, m.err
}

func (m *mockCoordinator) ApproveRequestCompletion(_ context.Context, requestID string) (*service.ApproveRequestResult, error) {
	m.lastRequestID = requestID
	return m.approveReq, m.err
}

func (m *mockCoordinator) AddTasksToRequest(_ context.Context, _ string, specs []task.Spec) (*service.AddTasksResult, error) {
	m.lastSpecs = specs
	return m.addResult, m.err
}

func (m *mockCoordinator) UpdateTask(_ context.Context, _, _ string, _, _ *string) (*service.UpdateTaskResult, error) {
	return m.updateResult, m.err
}

func (m *mockCoordinator) DeleteTask(_ context.Context, _, _ string) (*service.DeleteTaskResult, error) {
	return m.deleteResult, m.err
}

func (m *mockCoordinator) ListRequests(_ context.Context) (*service.ListResult, error) {
	return m.listResult, m.err
}

func (m *mockCoordinator) OpenTaskDetails(_ context.Context, _ string) (*task.Task, error) {
	return m.taskDetails, m.err
}

func (m *mockCoordinator) ClearAllData(_ context.Context, confirmation string) (*service.ClearResult, error) {
	m.lastConfirm = confirmation
	return m.clearResult, m.err
}

func callTool(t *testing.T, s *acmcp.Server, name string, args map[string]any) *mcplib.CallToolResult {
	t.Helper()
	tools := s.MCPServer().ListTools()
	tool, ok := tools[name]
	if !ok {
		t.Fatalf("tool %s not found", name)
	}
	result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return result
}

// --- Tests ---

func TestNewServer(t *testing.T) {
	cfg := acmcp.ServerConfig{
		Addr:    ":3001",
		Name:    "agentcoord",
		Version: "0.1.0",
	}
	s := acmcp.NewServer(cfg, acmcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestServerStartStop(t *testing.T) {
	cfg := acmcp.ServerConfig{
		Addr:    ":0",
		Name:    "agentcoord",
		Version: "0.1.0",
	}
	s := acmcp.NewServer(cfg, acmcp.ServerDeps{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{
		Coordinator: &mockCoordinator{},
	})

	tools := s.MCPServer().ListTools()
	expectedTools := map[string]bool{
		"request_planning":           false,
		"get_next_task":              false,
		"mark_task_done":             false,
		"approve_task_completion":    false,
		"approve_request_completion": false,
		"add_tasks_to_request":       false,
		"update_task":                false,
		"delete_task":                false,
		"list_requests":              false,
		"open_task_details":          false,
		"clear_all_data":             false,
	}
	if len(tools) != len(expectedTools) {
		t.Fatalf("expected %d tools, got %d", len(expectedTools), len(tools))
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleRequestPlanning(t *testing.T) {
	mock := &mockCoordinator{
		planResult: &service.PlanResult{
			RequestID: "req-1",
			TaskCount: 2,
			Message:   "tasks planned",
			TasksProgress: []task.Progress{
				{ID: "task-1", Title: "First", Status: task.StatusPending},
				{ID: "task-2", Title: "Second", Status: task.StatusPending},
			},
		},
	}
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{Coordinator: mock})

	result := callTool(t, s, "request_planning", map[string]any{
		"originalRequest": "ship the feature",
		"tasks": []any{
			map[string]any{"title": "First", "description": "do the first thing"},
			map[string]any{"title": "Second", "description": "do the second thing", "agentTypeHint": "coder"},
		},
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	if len(result.Content) != 2 {
		t.Fatalf("expected JSON plus progress table, got %d content blocks", len(result.Content))
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var res service.PlanResult
	if err := json.Unmarshal([]byte(text.Text), &res); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if res.RequestID != "req-1" || res.TaskCount != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	table, ok := result.Content[1].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent table")
	}
	if !strings.Contains(table.Text, "| Task |") || !strings.Contains(table.Text, "First") {
		t.Fatalf("unexpected progress table: %s", table.Text)
	}

	if len(mock.lastSpecs) != 2 || mock.lastSpecs[1].AgentTypeHint != "coder" {
		t.Fatalf("specs not forwarded: %+v", mock.lastSpecs)
	}
}

func TestHandleRequestPlanningRejectsNonObjectTask(t *testing.T) {
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{
		Coordinator: &mockCoordinator{},
	})

	result := callTool(t, s, "request_planning", map[string]any{
		"originalRequest": "ship the feature",
		"tasks":           []any{"just a string"},
	})
	if !result.IsError {
		t.Fatal("expected error result for non-object task entry")
	}
}

func TestHandleGetNextTask(t *testing.T) {
	mock := &mockCoordinator{
		nextResult: &service.NextTaskResult{
			Success:     true,
			HasNextTask: true,
			Task:        &task.Task{ID: "task-1", Title: "First", Status: task.StatusAssigned, AssignedAgentID: "agent-7"},
			TasksProgress: []task.Progress{
				{ID: "task-1", Title: "First", Status: task.StatusAssigned, AssignedAgentID: "agent-7"},
			},
		},
	}
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{Coordinator: mock})

	result := callTool(t, s, "get_next_task", map[string]any{
		"requestId": "req-1",
		"agentId":   "agent-7",
	})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var res service.NextTaskResult
	if err := json.Unmarshal([]byte(text.Text), &res); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if !res.HasNextTask || res.Task == nil || res.Task.ID != "task-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if mock.lastAgentID != "agent-7" {
		t.Fatalf("agentId not forwarded: %q", mock.lastAgentID)
	}
}

func TestHandleGetNextTaskMissingArg(t *testing.T) {
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{
		Coordinator: &mockCoordinator{},
	})

	result := callTool(t, s, "get_next_task", map[string]any{"requestId": "req-1"})
	if !result.IsError {
		t.Fatal("expected error result for missing agentId")
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{})

	result := callTool(t, s, "list_requests", nil)
	if !result.IsError {
		t.Fatal("expected error result when deps are nil")
	}
}

func TestHandleOpenTaskDetails(t *testing.T) {
	mock := &mockCoordinator{
		taskDetails: &task.Task{ID: "task-9", Title: "Lookup me", Status: task.StatusDone, Approved: true},
	}
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{Coordinator: mock})

	result := callTool(t, s, "open_task_details", map[string]any{"taskId": "task-9"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var res struct {
		Task task.Task `json:"task"`
	}
	if err := json.Unmarshal([]byte(text.Text), &res); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if res.Task.ID != "task-9" || !res.Task.Approved {
		t.Fatalf("unexpected task: %+v", res.Task)
	}
}

func TestHandleClearAllData(t *testing.T) {
	mock := &mockCoordinator{
		clearResult: &service.ClearResult{Success: true, Message: "all data cleared"},
	}
	s := acmcp.NewServer(acmcp.ServerConfig{Name: "agentcoord", Version: "0.1.0"}, acmcp.ServerDeps{Coordinator: mock})

	result := callTool(t, s, "clear_all_data", map[string]any{"confirmation": "CLEAR_ALL_MY_DATA"})
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}
	if mock.lastConfirm != "CLEAR_ALL_MY_DATA" {
		t.Fatalf("confirmation not forwarded: %q", mock.lastConfirm)
	}
}
