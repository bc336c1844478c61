package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentcoord/agentcoord/internal/domain/request"
	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/port/database"
)

// Store implements database.Store using PostgreSQL. The whole model is
// replaced in a single transaction on every mutation, which keeps the
// snapshot semantics identical to the file backend.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Load(ctx context.Context) (*database.Snapshot, error) {
	snap := database.NewSnapshot()

	rows, err := s.pool.Query(ctx,
		`SELECT id, original_request, split_details, status, task_ids, created_at, updated_at
		 FROM requests`)
	if err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r request.Request
		var taskIDs []byte
		if err := rows.Scan(&r.ID, &r.OriginalRequest, &r.SplitDetails, &r.Status, &taskIDs, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		if err := json.Unmarshal(taskIDs, &r.TaskIDs); err != nil {
			return nil, fmt.Errorf("decode task ids for %s: %w", r.ID, err)
		}
		snap.Requests[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}

	taskRows, err := s.pool.Query(ctx,
		`SELECT id, request_id, title, description, agent_type_hint, status, assigned_agent_id,
		        completed_at, completed_details, approved, approved_at, created_at, updated_at
		 FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var t task.Task
		if err := taskRows.Scan(&t.ID, &t.RequestID, &t.Title, &t.Description, &t.AgentTypeHint,
			&t.Status, &t.AssignedAgentID, &t.CompletedAt, &t.CompletedDetails,
			&t.Approved, &t.ApprovedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		snap.Tasks[t.ID] = t
	}
	if err := taskRows.Err(); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	return snap, nil
}

func (s *Store) Replace(ctx context.Context, snap *database.Snapshot) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Tasks cascade from requests.
	if _, err := tx.Exec(ctx, `DELETE FROM requests`); err != nil {
		return fmt.Errorf("clear requests: %w", err)
	}

	for _, r := range snap.Requests {
		taskIDs, err := json.Marshal(r.TaskIDs)
		if err != nil {
			return fmt.Errorf("encode task ids for %s: %w", r.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO requests (id, original_request, split_details, status, task_ids, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.OriginalRequest, r.SplitDetails, r.Status, taskIDs, r.CreatedAt, r.UpdatedAt); err != nil {
			return fmt.Errorf("insert request %s: %w", r.ID, err)
		}
	}

	for _, t := range snap.Tasks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tasks (id, request_id, title, description, agent_type_hint, status, assigned_agent_id,
			                    completed_at, completed_details, approved, approved_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			t.ID, t.RequestID, t.Title, t.Description, t.AgentTypeHint, t.Status, t.AssignedAgentID,
			t.CompletedAt, t.CompletedDetails, t.Approved, t.ApprovedAt, t.CreatedAt, t.UpdatedAt); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}
