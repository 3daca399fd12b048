package store

import (
	"context"
	"testing"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_ToolStateIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	state := &domain.WorkflowState{
		TaskID:       "T1",
		ToolName:     "plan_task",
		CurrentState: "discovery",
		ContextStore: map[string]any{"k": "v"},
	}
	require.NoError(t, b.SaveToolState(ctx, state))

	// Mutating the caller's copy after save must not affect stored state.
	state.CurrentState = "mutated"
	state.ContextStore["k"] = "mutated"

	loaded, err := b.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "discovery", loaded.CurrentState)
	assert.Equal(t, "v", loaded.ContextStore["k"])

	// Mutating the loaded copy must not affect the backend's internal copy.
	loaded.CurrentState = "also-mutated"
	again, err := b.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "discovery", again.CurrentState)
}

func TestMemoryBackend_NotFound(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_, err := b.LoadToolState(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = b.LoadTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_Scratchpad(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	require.NoError(t, b.AppendScratchpad(ctx, "T1", "a"))
	require.NoError(t, b.AppendScratchpad(ctx, "T1", "b"))
	assert.Equal(t, "ab", b.Scratchpad("T1"))
}
