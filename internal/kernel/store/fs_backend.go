package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
)

const (
	toolStateFile  = "tool_state.json"
	taskFile       = "task.json"
	scratchpadFile = "scratchpad.md"
)

// FSBackend persists state under <root>/workspace/<task_id>/, per spec.md
// §4.1. Every write goes through writeAtomic: serialize to a sibling temp
// file, fsync, then rename over the target — the rename is the commit
// point, so a crash between temp-write and rename always leaves the prior
// file intact.
type FSBackend struct {
	root string // workspace root, i.e. <root>/workspace
}

// NewFSBackend creates a backend rooted at <root>/workspace.
func NewFSBackend(root string) *FSBackend {
	return &FSBackend{root: filepath.Join(root, "workspace")}
}

func (b *FSBackend) taskDir(taskID string) string {
	return filepath.Join(b.root, taskID)
}

func (b *FSBackend) LoadToolState(_ context.Context, taskID string) (*domain.WorkflowState, error) {
	path := filepath.Join(b.taskDir(taskID), toolStateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &kerrors.IOError{Op: "read", Path: path, Cause: err}
	}
	var state domain.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &kerrors.PersistenceCorrupted{Path: path, Cause: err}
	}
	return &state, nil
}

func (b *FSBackend) SaveToolState(_ context.Context, state *domain.WorkflowState) error {
	dir := b.taskDir(state.TaskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &kerrors.IOError{Op: "mkdir", Path: dir, Cause: err}
	}
	state.UpdatedAt = now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tool state: %w", err)
	}
	path := filepath.Join(dir, toolStateFile)
	return writeAtomic(path, append(data, '\n'))
}

func (b *FSBackend) DeleteToolState(_ context.Context, taskID string) error {
	path := filepath.Join(b.taskDir(taskID), toolStateFile)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &kerrors.IOError{Op: "unlink", Path: path, Cause: err}
	}
	return nil
}

func (b *FSBackend) LoadTask(_ context.Context, taskID string) (*domain.Task, error) {
	path := filepath.Join(b.taskDir(taskID), taskFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &kerrors.IOError{Op: "read", Path: path, Cause: err}
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, &kerrors.PersistenceCorrupted{Path: path, Cause: err}
	}
	return &task, nil
}

func (b *FSBackend) SaveTask(_ context.Context, task *domain.Task) error {
	dir := b.taskDir(task.TaskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &kerrors.IOError{Op: "mkdir", Path: dir, Cause: err}
	}
	task.UpdatedAt = now()
	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	path := filepath.Join(dir, taskFile)
	return writeAtomic(path, append(data, '\n'))
}

// AppendScratchpad appends a rendered markdown entry to the scratchpad log.
// Per spec.md §4.1/§7, scratchpad rendering is out of scope for correctness
// and its failure must never corrupt or block a state transition — callers
// treat a non-nil error here as log-and-continue, never as a commit abort.
func (b *FSBackend) AppendScratchpad(_ context.Context, taskID string, entry string) error {
	dir := b.taskDir(taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &kerrors.IOError{Op: "mkdir", Path: dir, Cause: err}
	}
	path := filepath.Join(dir, scratchpadFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &kerrors.IOError{Op: "open", Path: path, Cause: err}
	}
	defer f.Close()
	if _, err := f.WriteString(entry); err != nil {
		return &kerrors.IOError{Op: "write", Path: path, Cause: err}
	}
	return nil
}

// writeAtomic serializes data to a sibling temp file, fsyncs it, then
// renames it over path. The rename is the commit point (spec.md §4.1).
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &kerrors.IOError{Op: "create-temp", Path: tmp, Cause: err}
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return &kerrors.IOError{Op: "write-temp", Path: tmp, Cause: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &kerrors.IOError{Op: "fsync", Path: tmp, Cause: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &kerrors.IOError{Op: "close-temp", Path: tmp, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &kerrors.IOError{Op: "rename", Path: path, Cause: err}
	}
	return nil
}

// now is a var so tests can stub a deterministic clock where needed.
var now = func() time.Time { return time.Now().UTC() }
