// Package database defines the durable store port (interface).
package database

import (
	"context"

	"github.com/agentcoord/agentcoord/internal/domain/request"
	"github.com/agentcoord/agentcoord/internal/domain/task"
)

// Snapshot is the complete persisted model: two independent maps, one keyed
// by request ID and one by task ID.
type Snapshot struct {
	Requests map[string]request.Request `json:"requests"`
	Tasks    map[string]task.Task       `json:"tasks"`
}

// NewSnapshot returns an empty snapshot with both maps allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Requests: make(map[string]request.Request),
		Tasks:    make(map[string]task.Task),
	}
}

// Store is the port interface for durable persistence. Implementations
// serialize the whole model on every mutation; partial writes must never
// be visible to readers (write-to-temp-then-rename or a transaction).
type Store interface {
	// Load reads the full persisted model. A missing backing file or empty
	// database yields an empty snapshot, not an error.
	Load(ctx context.Context) (*Snapshot, error)

	// Replace atomically overwrites the full persisted model.
	Replace(ctx context.Context, snap *Snapshot) error
}
