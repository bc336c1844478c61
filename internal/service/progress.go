package service

import (
	"fmt"
	"strings"

	"github.com/agentcoord/agentcoord/internal/domain"
	"github.com/agentcoord/agentcoord/internal/domain/task"
)

// progressLocked projects the request's tasks into flattened progress rows
// in creation order. Recomputed fresh on every call; other agents may have
// mutated state since the caller last looked. Must hold mu.
func (c *Coordinator) progressLocked(requestID string) []task.Progress {
	r, ok := c.requests[requestID]
	if !ok {
		return []task.Progress{}
	}

	out := make([]task.Progress, 0, len(r.TaskIDs))
	for _, id := range r.TaskIDs {
		t, ok := c.tasks[id]
		if !ok {
			continue
		}
		out = append(out, task.Progress{
			ID:              t.ID,
			Title:           t.Title,
			Description:     t.Description,
			Status:          t.Status,
			AssignedAgentID: t.AssignedAgentID,
			Approved:        t.Approved,
		})
	}
	return out
}

// ProgressTable renders the request's progress as a markdown table for
// display-oriented callers.
func (c *Coordinator) ProgressTable(requestID string) (string, error) {
	c.mu.Lock()
	_, ok := c.requests[requestID]
	progress := c.progressLocked(requestID)
	c.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("request %s: %w", requestID, domain.ErrNotFound)
	}
	return RenderProgressTable(progress), nil
}

// RenderProgressTable renders progress rows as a markdown table.
func RenderProgressTable(progress []task.Progress) string {
	var b strings.Builder
	b.WriteString("| Task | Status | Agent | Approved |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, p := range progress {
		agent := p.AssignedAgentID
		if agent == "" {
			agent = "-"
		}
		approved := "no"
		if p.Approved {
			approved = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Title, p.Status, agent, approved)
	}
	return b.String()
}
