// Package jsonfile implements the database.Store port on top of two JSON
// files in a local data directory. It is the default backend for single
// node deployments.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentcoord/agentcoord/internal/domain/request"
	"github.com/agentcoord/agentcoord/internal/domain/task"
	"github.com/agentcoord/agentcoord/internal/port/database"
)

const (
	requestsFile = "requests.json"
	tasksFile    = "tasks.json"
)

// Store persists the full model as requests.json and tasks.json. Every
// Replace writes a temp file and renames it over the old one, so readers
// never observe a partial write.
type Store struct {
	dir string
}

// New creates the data directory if needed and returns a file-backed store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Load reads both files. Missing files yield an empty snapshot.
func (s *Store) Load(_ context.Context) (*database.Snapshot, error) {
	snap := database.NewSnapshot()

	var requests []request.Request
	if err := s.readFile(requestsFile, &requests); err != nil {
		return nil, err
	}
	for _, r := range requests {
		snap.Requests[r.ID] = r
	}

	var tasks []task.Task
	if err := s.readFile(tasksFile, &tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		snap.Tasks[t.ID] = t
	}

	return snap, nil
}

// Replace writes the full snapshot. Tasks are written before requests so
// a crash between the two renames never leaves a request referencing a
// task that was not persisted.
func (s *Store) Replace(_ context.Context, snap *database.Snapshot) error {
	tasks := make([]task.Task, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	requests := make([]request.Request, 0, len(snap.Requests))
	for _, r := range snap.Requests {
		requests = append(requests, r)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })

	if err := s.writeFile(tasksFile, tasks); err != nil {
		return err
	}
	return s.writeFile(requestsFile, requests)
}

func (s *Store) readFile(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
