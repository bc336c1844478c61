package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentcoord/agentcoord/internal/adapter/postgres"
	"github.com/agentcoord/agentcoord/internal/domain/request"
	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/port/database"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func TestReplaceThenLoadRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	done := now.Add(time.Hour)

	snap := database.NewSnapshot()
	snap.Requests["req-pg-1"] = request.Request{
		ID:              "req-pg-1",
		OriginalRequest: "ship the login page",
		Status:          request.StatusPending,
		TaskIDs:         []string{"task-pg-1"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	snap.Tasks["task-pg-1"] = task.Task{
		ID:               "task-pg-1",
		RequestID:        "req-pg-1",
		Title:            "backend endpoint",
		Description:      "POST /login",
		AgentTypeHint:    "backend",
		Status:           task.StatusDone,
		AssignedAgentID:  "backend-7f2a",
		CompletedAt:      &done,
		CompletedDetails: "merged",
		CreatedAt:        now,
		UpdatedAt:        done,
	}

	if err := store.Replace(ctx, snap); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	r, ok := got.Requests["req-pg-1"]
	if !ok {
		t.Fatal("expected req-pg-1 after reload")
	}
	if len(r.TaskIDs) != 1 || r.TaskIDs[0] != "task-pg-1" {
		t.Errorf("TaskIDs = %v", r.TaskIDs)
	}

	tk, ok := got.Tasks["task-pg-1"]
	if !ok {
		t.Fatal("expected task-pg-1 after reload")
	}
	if tk.Status != task.StatusDone {
		t.Errorf("Status = %q, want DONE", tk.Status)
	}
	if tk.CompletedAt == nil || !tk.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", tk.CompletedAt, done)
	}

	// Replacing with an empty snapshot clears everything.
	if err := store.Replace(ctx, database.NewSnapshot()); err != nil {
		t.Fatalf("Replace empty: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Requests) != 0 || len(got.Tasks) != 0 {
		t.Fatalf("expected empty model, got %d requests, %d tasks", len(got.Requests), len(got.Tasks))
	}
}
