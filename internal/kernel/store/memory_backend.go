package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
)

// MemoryBackend implements Backend entirely in memory, keyed by task_id.
// It is intended for unit tests and for simulating crash/recovery boundary
// conditions (spec.md §8) without touching a real filesystem. Not for
// production use: all state is lost when the process exits.
//
// Grounded on the teacher's libs/project/state.MemoryBackend, generalized
// from a single stored value to a per-task_id map (this kernel's Backend
// covers every active task in one process, not one project at a time).
type MemoryBackend struct {
	mu          sync.RWMutex
	toolStates  map[string]*domain.WorkflowState
	tasks       map[string]*domain.Task
	scratchpads map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		toolStates:  make(map[string]*domain.WorkflowState),
		tasks:       make(map[string]*domain.Task),
		scratchpads: make(map[string]string),
	}
}

// copyToolState round-trips through JSON to give callers a value wholly
// independent from the backend's internal copy, the same isolation
// guarantee FSBackend gives via the filesystem.
func copyToolState(s *domain.WorkflowState) *domain.WorkflowState {
	if s == nil {
		return nil
	}
	data, _ := json.Marshal(s)
	var out domain.WorkflowState
	_ = json.Unmarshal(data, &out)
	return &out
}

func copyTask(t *domain.Task) *domain.Task {
	if t == nil {
		return nil
	}
	data, _ := json.Marshal(t)
	var out domain.Task
	_ = json.Unmarshal(data, &out)
	return &out
}

func (b *MemoryBackend) LoadToolState(_ context.Context, taskID string) (*domain.WorkflowState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.toolStates[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyToolState(s), nil
}

func (b *MemoryBackend) SaveToolState(_ context.Context, state *domain.WorkflowState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	state.UpdatedAt = now()
	b.toolStates[state.TaskID] = copyToolState(state)
	return nil
}

func (b *MemoryBackend) DeleteToolState(_ context.Context, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.toolStates, taskID)
	return nil
}

func (b *MemoryBackend) LoadTask(_ context.Context, taskID string) (*domain.Task, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTask(t), nil
}

func (b *MemoryBackend) SaveTask(_ context.Context, task *domain.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	task.UpdatedAt = now()
	b.tasks[task.TaskID] = copyTask(task)
	return nil
}

func (b *MemoryBackend) AppendScratchpad(_ context.Context, taskID string, entry string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scratchpads[taskID] += entry
	return nil
}

// Scratchpad returns the accumulated scratchpad text for a task. Test-only
// helper, not part of the Backend interface.
func (b *MemoryBackend) Scratchpad(taskID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scratchpads[taskID]
}

// PutToolStateRaw seeds a tool state directly, bypassing timestamping —
// used by tests that construct a specific crash-recovery intermediate
// condition (spec.md §8 boundary-behavior scenarios).
func (b *MemoryBackend) PutToolStateRaw(state *domain.WorkflowState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toolStates[state.TaskID] = copyToolState(state)
}

var _ Backend = (*MemoryBackend)(nil)
var _ Backend = (*FSBackend)(nil)
