package mcp

import (
	"context"
	"encoding/json"
	"errors"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/service"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.requestPlanningTool(),
		s.getNextTaskTool(),
		s.markTaskDoneTool(),
		s.approveTaskCompletionTool(),
		s.approveRequestCompletionTool(),
		s.addTasksToRequestTool(),
		s.updateTaskTool(),
		s.deleteTaskTool(),
		s.listRequestsTool(),
		s.openTaskDetailsTool(),
		s.clearAllDataTool(),
	)
}

func (s *Server) requestPlanningTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("request_planning",
		mcplib.WithDescription("Register a new request and its initial task list"),
		mcplib.WithString("originalRequest",
			mcplib.Required(),
			mcplib.Description("Free-form description of the unit of work"),
		),
		mcplib.WithString("splitDetails",
			mcplib.Description("Optional annotation on how the work was split"),
		),
		mcplib.WithArray("tasks",
			mcplib.Required(),
			mcplib.Description("Task list: objects with title, description, and optional agentTypeHint"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRequestPlanning}
}

func (s *Server) getNextTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_next_task",
		mcplib.WithDescription("Claim the next assignable task for an agent"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The request to pull work from")),
		mcplib.WithString("agentId", mcplib.Required(), mcplib.Description("The calling agent's identifier")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetNextTask}
}

func (s *Server) markTaskDoneTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("mark_task_done",
		mcplib.WithDescription("Report a claimed task as completed"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The owning request")),
		mcplib.WithString("taskId", mcplib.Required(), mcplib.Description("The completed task")),
		mcplib.WithString("agentId", mcplib.Required(), mcplib.Description("The agent that performed the work")),
		mcplib.WithString("completedDetails", mcplib.Description("Optional completion notes")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleMarkTaskDone}
}

func (s *Server) approveTaskCompletionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("approve_task_completion",
		mcplib.WithDescription("Approve a completed task"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The owning request")),
		mcplib.WithString("taskId", mcplib.Required(), mcplib.Description("The task to approve")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleApproveTaskCompletion}
}

func (s *Server) approveRequestCompletionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("approve_request_completion",
		mcplib.WithDescription("Approve a request once every task is done and approved"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The request to complete")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleApproveRequestCompletion}
}

func (s *Server) addTasksToRequestTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("add_tasks_to_request",
		mcplib.WithDescription("Append new tasks to an existing request"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The request to extend")),
		mcplib.WithArray("tasks",
			mcplib.Required(),
			mcplib.Description("Task list: objects with title, description, and optional agentTypeHint"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleAddTasksToRequest}
}

func (s *Server) updateTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("update_task",
		mcplib.WithDescription("Update title or description of a task that is not yet done"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The owning request")),
		mcplib.WithString("taskId", mcplib.Required(), mcplib.Description("The task to update")),
		mcplib.WithString("title", mcplib.Description("New title")),
		mcplib.WithString("description", mcplib.Description("New description")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleUpdateTask}
}

func (s *Server) deleteTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("delete_task",
		mcplib.WithDescription("Remove a task that is not yet completed and approved"),
		mcplib.WithString("requestId", mcplib.Required(), mcplib.Description("The owning request")),
		mcplib.WithString("taskId", mcplib.Required(), mcplib.Description("The task to delete")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleDeleteTask}
}

func (s *Server) listRequestsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_requests",
		mcplib.WithDescription("List all requests with per-request task counts"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListRequests}
}

func (s *Server) openTaskDetailsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("open_task_details",
		mcplib.WithDescription("Look up a single task by ID"),
		mcplib.WithString("taskId", mcplib.Required(), mcplib.Description("The task to look up")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleOpenTaskDetails}
}

func (s *Server) clearAllDataTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("clear_all_data",
		mcplib.WithDescription("Delete every request and task. Requires the confirmation string CLEAR_ALL_MY_DATA"),
		mcplib.WithString("confirmation", mcplib.Required(), mcplib.Description("Must be exactly CLEAR_ALL_MY_DATA")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleClearAllData}
}

// --- Handlers ---

func (s *Server) handleRequestPlanning(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	originalRequest, ok := args["originalRequest"].(string)
	if !ok || originalRequest == "" {
		return mcplib.NewToolResultError("originalRequest is required"), nil
	}
	splitDetails, _ := args["splitDetails"].(string)
	specs, err := parseTaskSpecs(args["tasks"])
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	res, err := s.deps.Coordinator.RequestPlanning(ctx, originalRequest, splitDetails, specs)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("request planning failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleGetNextTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}
	agentID, ok := args["agentId"].(string)
	if !ok || agentID == "" {
		return mcplib.NewToolResultError("agentId is required"), nil
	}

	res, err := s.deps.Coordinator.GetNextTask(ctx, requestID, agentID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("get next task failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleMarkTaskDone(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("taskId is required"), nil
	}
	agentID, ok := args["agentId"].(string)
	if !ok || agentID == "" {
		return mcplib.NewToolResultError("agentId is required"), nil
	}
	completedDetails, _ := args["completedDetails"].(string)

	res, err := s.deps.Coordinator.MarkTaskDone(ctx, requestID, taskID, agentID, completedDetails)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("mark task done failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleApproveTaskCompletion(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("taskId is required"), nil
	}

	res, err := s.deps.Coordinator.ApproveTaskCompletion(ctx, requestID, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("approve task failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleApproveRequestCompletion(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}

	res, err := s.deps.Coordinator.ApproveRequestCompletion(ctx, requestID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("approve request failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleAddTasksToRequest(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}
	specs, err := parseTaskSpecs(args["tasks"])
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}

	res, err := s.deps.Coordinator.AddTasksToRequest(ctx, requestID, specs)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("add tasks failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleUpdateTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("taskId is required"), nil
	}

	var title, description *string
	if v, ok := args["title"].(string); ok {
		title = &v
	}
	if v, ok := args["description"].(string); ok {
		description = &v
	}

	res, err := s.deps.Coordinator.UpdateTask(ctx, requestID, taskID, title, description)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("update task failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleDeleteTask(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	requestID, ok := args["requestId"].(string)
	if !ok || requestID == "" {
		return mcplib.NewToolResultError("requestId is required"), nil
	}
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("taskId is required"), nil
	}

	res, err := s.deps.Coordinator.DeleteTask(ctx, requestID, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("delete task failed", err), nil
	}
	return marshalWithTable(res, res.TasksProgress)
}

func (s *Server) handleListRequests(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	res, err := s.deps.Coordinator.ListRequests(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("list requests failed", err), nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("marshal result failed", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleOpenTaskDetails(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	taskID, ok := args["taskId"].(string)
	if !ok || taskID == "" {
		return mcplib.NewToolResultError("taskId is required"), nil
	}

	t, err := s.deps.Coordinator.OpenTaskDetails(ctx, taskID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("open task details failed", err), nil
	}
	data, err := json.Marshal(map[string]any{"task": t})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("marshal result failed", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleClearAllData(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Coordinator == nil {
		return mcplib.NewToolResultError("coordinator not configured"), nil
	}
	args := req.GetArguments()
	confirmation, _ := args["confirmation"].(string)

	res, err := s.deps.Coordinator.ClearAllData(ctx, confirmation)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("clear all data failed", err), nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("marshal result failed", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// parseTaskSpecs converts the raw tasks argument into typed specs.
// Non-object entries are rejected rather than coerced.
func parseTaskSpecs(v any) ([]task.Spec, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New("tasks must be an array of objects")
	}
	specs := make([]task.Spec, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.New("each task must be an object with title and description")
		}
		var spec task.Spec
		if s, ok := m["title"].(string); ok {
			spec.Title = s
		}
		if s, ok := m["description"].(string); ok {
			spec.Description = s
		}
		if s, ok := m["agentTypeHint"].(string); ok {
			spec.AgentTypeHint = s
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// marshalWithTable serializes the result and attaches a rendered progress
// table as a second content block.
func marshalWithTable(res any, progress []task.Progress) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("marshal result failed", err), nil
	}
	return toolResultJSONWithTable(string(data), service.RenderProgressTable(progress)), nil
}
