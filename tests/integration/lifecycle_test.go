//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/agentcoord/agentcoord/internal/service"
)

func postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp, err := http.Post(testServer.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthLiveness(t *testing.T) {
	resp, err := http.Get(testServer.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestLifecycleAgainstPostgres(t *testing.T) {
	// Plan
	resp := postJSON(t, "/api/v1/requests", map[string]any{
		"originalRequest": "integration lifecycle",
		"tasks": []map[string]string{
			{"title": "One", "description": "first"},
			{"title": "Two", "description": "second"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("plan: expected 201, got %d", resp.StatusCode)
	}
	plan := decode[service.PlanResult](t, resp)
	reqID := plan.RequestID

	// Claim and complete both tasks
	for range 2 {
		resp = postJSON(t, "/api/v1/requests/"+reqID+"/next-task", map[string]string{
			"agentId": "it-agent",
		})
		next := decode[service.NextTaskResult](t, resp)
		if next.Task == nil {
			t.Fatal("expected a task")
		}

		resp = postJSON(t, "/api/v1/requests/"+reqID+"/tasks/"+next.Task.ID+"/done", map[string]string{
			"agentId": "it-agent",
		})
		done := decode[service.DoneResult](t, resp)
		if done.Status != "DONE" {
			t.Fatalf("expected DONE, got %s", done.Status)
		}

		resp = postJSON(t, "/api/v1/requests/"+reqID+"/tasks/"+next.Task.ID+"/approve", nil)
		approve := decode[service.ApproveTaskResult](t, resp)
		if !approve.Success {
			t.Fatalf("approve failed: %s", approve.Message)
		}
	}

	// Approve the request
	resp = postJSON(t, "/api/v1/requests/"+reqID+"/approve", nil)
	reqApprove := decode[service.ApproveRequestResult](t, resp)
	if !reqApprove.Success {
		t.Fatalf("request approve failed: %s", reqApprove.Message)
	}

	// The persisted rows survive a fresh Load
	var count int
	if err := testPool.QueryRow(t.Context(),
		`SELECT count(*) FROM tasks WHERE request_id = $1 AND approved`, reqID,
	).Scan(&count); err != nil {
		t.Fatalf("count approved tasks: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 approved tasks in postgres, got %d", count)
	}
}
