package dispatch

import (
	"context"
	"fmt"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
)

// EnterWorkflow is the shared implementation behind plan_task,
// implement_task, review_task, test_task, and finalize_task (spec.md
// §4.5 entry #1): idempotent entry into toolName's workflow for taskID.
// Re-entry (a WorkflowState already exists for this tool) simply
// regenerates the prompt for the loaded state — no state change — which
// is how a crashed or interrupted session resumes.
func (d *Dispatcher) EnterWorkflow(ctx context.Context, toolName, taskID string) *Result {
	return d.locks.withTaskLock(taskID, func() *Result {
		spec, err := workflowSpec(toolName)
		if err != nil {
			return failure(err.Error())
		}

		task, ws, err := d.loadTaskAndRecover(ctx, taskID, toolName)
		if err != nil {
			return failure(err.Error())
		}

		if ws != nil && ws.ToolName != toolName {
			return failure(fmt.Sprintf(
				"task %s already has an active %s workflow; cannot start %s", taskID, ws.ToolName, toolName,
			))
		}

		if ws == nil {
			// First entry: build the initial WorkflowState and persist it
			// before returning a prompt, so a crash before the caller
			// receives the prompt still resumes correctly on re-entry
			// (spec.md Scenario D).
			ws = &domain.WorkflowState{
				TaskID:       taskID,
				ToolName:     toolName,
				CurrentState: string(spec.Initial()),
				ContextStore: map[string]any{},
			}
			if err := d.backend.SaveToolState(ctx, ws); err != nil {
				return failure(err.Error())
			}
			d.appendScratchpad(ctx, taskID, toolName, ws.CurrentState, "entered", "")
		}

		artifactJSON, err := currentArtifactJSON(ws, workStateOf(ws.CurrentState))
		if err != nil {
			return failure(err.Error())
		}
		vars := buildVars(task, toolName, ws.CurrentState, artifactJSON, feedbackFrom(ws))
		promptText, err := d.loader.Render(toolName, ws.CurrentState, vars)
		if err != nil {
			return failure(err.Error())
		}

		return success(fmt.Sprintf("entered %s at %s", toolName, ws.CurrentState), promptText, nil)
	})
}

// feedbackFrom reads the reviewer feedback left by the most recent
// request_revision, if any.
func feedbackFrom(ws *domain.WorkflowState) string {
	s, _ := ws.ContextStore[domain.FeedbackKey].(string)
	return s
}

// currentArtifactJSON is a convenience for review-state prompts: the
// artifact_json variable is the most recently submitted artifact, stored
// under ArtifactKey(workState).
func currentArtifactJSON(ws *domain.WorkflowState, workState string) (string, error) {
	raw, ok := ws.ContextStore[domain.ArtifactKey(workState)]
	if !ok {
		return "", nil
	}
	return marshalJSON(raw)
}

// workStateOf strips the "review_" prefix from a review state, returning
// the paired work state unchanged if s isn't a review state.
func workStateOf(s string) string {
	const prefix = "review_"
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}
