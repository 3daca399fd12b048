package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBackend_ToolStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewFSBackend(t.TempDir())

	_, err := b.LoadToolState(ctx, "T1")
	require.ErrorIs(t, err, ErrNotFound)

	state := &domain.WorkflowState{
		TaskID:       "T1",
		ToolName:     "plan_task",
		CurrentState: "discovery",
		ContextStore: map[string]any{"foo": "bar"},
	}
	require.NoError(t, b.SaveToolState(ctx, state))

	loaded, err := b.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "discovery", loaded.CurrentState)
	assert.Equal(t, "bar", loaded.ContextStore["foo"])
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestFSBackend_SaveToolState_IsAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFSBackend(dir)

	first := &domain.WorkflowState{TaskID: "T1", ToolName: "plan_task", CurrentState: "discovery"}
	require.NoError(t, b.SaveToolState(ctx, first))

	path := filepath.Join(dir, "workspace", "T1", toolStateFile)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// No leftover temp file after a successful save.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	second := &domain.WorkflowState{TaskID: "T1", ToolName: "plan_task", CurrentState: "review_discovery"}
	require.NoError(t, b.SaveToolState(ctx, second))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, string(before), string(after))
}

func TestFSBackend_LoadToolState_Corrupted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFSBackend(dir)

	taskDir := filepath.Join(dir, "workspace", "T1")
	require.NoError(t, os.MkdirAll(taskDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(taskDir, toolStateFile), []byte("{not json"), 0o644))

	_, err := b.LoadToolState(ctx, "T1")
	var corrupted *kerrors.PersistenceCorrupted
	require.ErrorAs(t, err, &corrupted)
}

func TestFSBackend_TaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewFSBackend(t.TempDir())

	task := &domain.Task{TaskID: "T1", Title: "Do the thing", Status: domain.StatusNew}
	require.NoError(t, b.SaveTask(ctx, task))

	loaded, err := b.LoadTask(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, loaded.Status)
	assert.Equal(t, "Do the thing", loaded.Title)
}

func TestFSBackend_DeleteToolState(t *testing.T) {
	ctx := context.Background()
	b := NewFSBackend(t.TempDir())

	require.NoError(t, b.SaveToolState(ctx, &domain.WorkflowState{TaskID: "T1", ToolName: "plan_task", CurrentState: "discovery"}))
	require.NoError(t, b.DeleteToolState(ctx, "T1"))

	_, err := b.LoadToolState(ctx, "T1")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op, not an error.
	require.NoError(t, b.DeleteToolState(ctx, "T1"))
}

func TestFSBackend_AppendScratchpad(t *testing.T) {
	ctx := context.Background()
	b := NewFSBackend(t.TempDir())

	require.NoError(t, b.AppendScratchpad(ctx, "T1", "entry one\n"))
	require.NoError(t, b.AppendScratchpad(ctx, "T1", "entry two\n"))

	path := filepath.Join(b.root, "T1", scratchpadFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "entry one\nentry two\n", string(data))
}
