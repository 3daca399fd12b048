package dispatch

import "context"

// GetNextTask implements get_next_task() (spec.md §4.5 entry #6): a
// read-only query against the configured provider.Provider for the
// highest-priority READY task. When more than one task ties for the top
// priority rank, the choice is ambiguous and the caller must pick, so
// this returns status choices_required with every tied candidate in
// Data rather than silently picking one.
func (d *Dispatcher) GetNextTask(ctx context.Context) *Result {
	tasks, err := d.provider.ListReadyTasks(ctx)
	if err != nil {
		return failure(err.Error())
	}
	if len(tasks) == 0 {
		return success("no ready tasks", "", map[string]any{"tasks": []any{}})
	}

	top := tasks[0].Priority.Rank()
	for _, t := range tasks[1:] {
		if r := t.Priority.Rank(); r < top {
			top = r
		}
	}
	var tied []map[string]any
	for _, t := range tasks {
		if t.Priority.Rank() != top {
			continue
		}
		tied = append(tied, map[string]any{
			"task_id":  t.TaskID,
			"title":    t.Title,
			"priority": string(t.Priority),
		})
	}

	if len(tied) > 1 {
		return choicesRequired("multiple tasks tie for highest priority", map[string]any{"tasks": tied})
	}
	return success("next task selected", "", map[string]any{"tasks": tied})
}
