// Package store implements the State Store (C1): atomic, crash-safe
// persistence of domain.WorkflowState and domain.Task, plus the
// human-readable scratchpad log.
//
// Grounded on the teacher's libs/project/state.Backend interface and its
// YAMLBackend implementation (temp-file-then-rename). The wire format here
// is JSON rather than YAML, per spec.md §6.
package store

import (
	"context"
	"errors"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
)

// ErrNotFound is returned by Load* when no record exists yet.
var ErrNotFound = errors.New("state not found")

// Backend is the persistence seam for one task's on-disk workspace. A
// production process uses FSBackend; tests may use MemoryBackend to avoid
// real disk I/O.
type Backend interface {
	LoadToolState(ctx context.Context, taskID string) (*domain.WorkflowState, error)
	SaveToolState(ctx context.Context, state *domain.WorkflowState) error
	DeleteToolState(ctx context.Context, taskID string) error

	LoadTask(ctx context.Context, taskID string) (*domain.Task, error)
	SaveTask(ctx context.Context, task *domain.Task) error

	// AppendScratchpad appends a rendered entry to the task's scratchpad log.
	// Failures are never fatal to a commit; callers log and continue.
	AppendScratchpad(ctx context.Context, taskID string, entry string) error
}
