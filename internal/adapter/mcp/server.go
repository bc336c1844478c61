// Package mcp exposes the coordinator's verbs as Model Context Protocol
// tools over streamable HTTP, the primary transport for agent callers.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/service"
)

// Coordinator is the facade surface the MCP tools call into.
type Coordinator interface {
	RequestPlanning(ctx context.Context, originalRequest, splitDetails string, specs []task.Spec) (*service.PlanResult, error)
	GetNextTask(ctx context.Context, requestID, agentID string) (*service.NextTaskResult, error)
	MarkTaskDone(ctx context.Context, requestID, taskID, agentID, completedDetails string) (*service.DoneResult, error)
	ApproveTaskCompletion(ctx context.Context, requestID, taskID string) (*service.ApproveTaskResult, error)
	ApproveRequestCompletion(ctx context.Context, requestID string) (*service.ApproveRequestResult, error)
	AddTasksToRequest(ctx context.Context, requestID string, specs []task.Spec) (*service.AddTasksResult, error)
	UpdateTask(ctx context.Context, requestID, taskID string, title, description *string) (*service.UpdateTaskResult, error)
	DeleteTask(ctx context.Context, requestID, taskID string) (*service.DeleteTaskResult, error)
	ListRequests(ctx context.Context) (*service.ListResult, error)
	OpenTaskDetails(ctx context.Context, taskID string) (*task.Task, error)
	ClearAllData(ctx context.Context, confirmation string) (*service.ClearResult, error)
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Addr    string
	Name    string
	Version string
	APIKey  string
}

// ServerDeps holds the dependencies injected into tool handlers.
type ServerDeps struct {
	Coordinator Coordinator
}

// Server wraps the MCP server and its streamable HTTP transport.
type Server struct {
	cfg        ServerConfig
	deps       ServerDeps
	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(true),
		),
	}
	s.registerTools()
	return s
}

// MCPServer exposes the underlying MCP server, mainly for tests.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Start listens on the configured address and serves MCP over streamable
// HTTP in the background.
func (s *Server) Start() error {
	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           AuthMiddleware(s.cfg.APIKey, streamable),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("mcp listen %s: %w", s.cfg.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server error", "error", err)
		}
	}()

	slog.Info("mcp server started", "addr", ln.Addr().String(), "name", s.cfg.Name)
	return nil
}

// Stop gracefully shuts down the HTTP transport.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// toolResultJSON wraps a JSON document in a text content block.
func toolResultJSON(data string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(data)
}

// toolResultJSONWithTable returns the JSON result followed by a markdown
// progress table in a second content block, so display-oriented callers
// get a readable view without parsing.
func toolResultJSONWithTable(data, table string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: data},
			mcplib.TextContent{Type: "text", Text: table},
		},
	}
}
