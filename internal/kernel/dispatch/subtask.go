package dispatch

import (
	"context"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
	"github.com/jmgilman/taskforge/internal/kernel/store"
)

// implementDispatchingState is the only state mark_subtask_complete is
// legal from: implement_task's single work state.
const implementDispatchingState = "dispatching"

// MarkSubtaskComplete implements mark_subtask_complete(task_id,
// subtask_id) (spec.md §4.5 entry #5): an incremental progress report
// during implement_task's dispatching state. It never transitions the
// FSM; it only appends subtaskID to context_store under
// domain.CompletedSubtasksKey, so a later submit_work for the
// implementation manifest (or a crash-recovered re-entry) can see what
// was already reported done.
func (d *Dispatcher) MarkSubtaskComplete(ctx context.Context, taskID, subtaskID string) *Result {
	return d.locks.withTaskLock(taskID, func() *Result {
		ws, err := d.backend.LoadToolState(ctx, taskID)
		if err != nil {
			if err == store.ErrNotFound {
				return failure(noActiveWorkflow(taskID, "implement_task").Error())
			}
			return failure(err.Error())
		}
		if ws.ToolName != "implement_task" || ws.CurrentState != implementDispatchingState {
			return failure((&kerrors.InvalidTransition{
				ToolName: ws.ToolName, CurrentState: ws.CurrentState, Trigger: "mark_subtask_complete",
			}).Error())
		}

		clone := ws.Clone()
		clone.ContextStore[domain.CompletedSubtasksKey] = appendSubtask(clone.ContextStore, subtaskID)

		if err := d.backend.SaveToolState(ctx, clone); err != nil {
			return failure(err.Error())
		}
		return success("subtask "+subtaskID+" recorded complete", "", nil)
	})
}

// appendSubtask adds subtaskID to the completed-subtasks list already in
// contextStore, tolerating both a fresh []string (same-process) and the
// []any shape a disk round trip leaves it in, and skipping a duplicate
// report of the same subtask.
func appendSubtask(contextStore map[string]any, subtaskID string) []string {
	var completed []string
	switch v := contextStore[domain.CompletedSubtasksKey].(type) {
	case []string:
		completed = append(completed, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				completed = append(completed, s)
			}
		}
	}
	for _, existing := range completed {
		if existing == subtaskID {
			return completed
		}
	}
	return append(completed, subtaskID)
}
