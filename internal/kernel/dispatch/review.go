package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/fsm"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
	"github.com/jmgilman/taskforge/internal/kernel/store"
)

// reviewStatePrefix names the convention every review state follows
// (fsm.ReviewOf).
const reviewStatePrefix = "review_"

// ProvideReview implements provide_review(task_id, is_approved,
// feedback_notes) (spec.md §4.5 entry #3). It is only legal from a
// review_ state. A positive review fires ai_approve; a negative review
// fires request_revision and stashes feedbackNotes under
// domain.FeedbackKey for the returning work state's prompt. When
// ai_approve drives the machine to fsm.Terminal, this performs the
// terminal transition instead of returning another work prompt: advance
// Task.Status, persist task.json, then delete tool_state.json (spec.md
// §5's required ordering, so a crash between the two always leaves a
// recoverable, not a corrupt, trail).
func (d *Dispatcher) ProvideReview(ctx context.Context, taskID string, isApproved bool, feedbackNotes string) *Result {
	return d.locks.withTaskLock(taskID, func() *Result {
		task, err := d.backend.LoadTask(ctx, taskID)
		if err != nil {
			return failure(err.Error())
		}
		ws, err := d.backend.LoadToolState(ctx, taskID)
		if err != nil {
			if err == store.ErrNotFound {
				return failure(noActiveWorkflow(taskID, "").Error())
			}
			return failure(err.Error())
		}

		spec, specErr := workflowSpec(ws.ToolName)
		if specErr != nil {
			return failure(specErr.Error())
		}

		if !strings.HasPrefix(ws.CurrentState, reviewStatePrefix) {
			legal := fsm.NewBuilder(spec).At(fsm.State(ws.CurrentState), ws.ContextStore).PermittedTriggers()
			return failure((&kerrors.InvalidTransition{
				ToolName: ws.ToolName, CurrentState: ws.CurrentState,
				Trigger: "provide_review", LegalTriggers: legal,
			}).Error())
		}

		trigger := fsm.TriggerApprove
		if !isApproved {
			trigger = fsm.TriggerRevise
		}

		clone := ws.Clone()
		if !isApproved {
			clone.ContextStore[domain.FeedbackKey] = feedbackNotes
		}

		builder := fsm.NewBuilder(spec)
		machine := builder.At(fsm.State(ws.CurrentState), clone.ContextStore)
		if !machine.CanFire(trigger) {
			return failure((&kerrors.InvalidTransition{
				ToolName: ws.ToolName, CurrentState: ws.CurrentState,
				Trigger: string(trigger), LegalTriggers: machine.PermittedTriggers(),
			}).Error())
		}
		if err := machine.Fire(trigger); err != nil {
			return failure(err.Error())
		}
		nextState := machine.CurrentState()

		if nextState == fsm.Terminal {
			return d.completeTerminalTransition(ctx, task, ws.ToolName, ws.CurrentState)
		}

		clone.CurrentState = string(nextState)
		if isApproved {
			// Approval clears any stale feedback left by an earlier revision
			// cycle on a different work state.
			delete(clone.ContextStore, domain.FeedbackKey)
		}

		artifactJSON, err := currentArtifactJSON(clone, workStateOf(string(nextState)))
		if err != nil {
			return failure(err.Error())
		}
		feedback := feedbackFrom(clone)
		vars := buildVars(task, ws.ToolName, string(nextState), artifactJSON, feedback)
		promptText, err := d.loader.Render(ws.ToolName, string(nextState), vars)
		if err != nil {
			return failure(err.Error())
		}

		if err := d.backend.SaveToolState(ctx, clone); err != nil {
			return failure(err.Error())
		}
		action := "request_revision"
		notes := feedback
		if isApproved {
			action = "ai_approve"
			notes = artifactJSON
		}
		d.appendScratchpad(ctx, taskID, ws.ToolName, ws.CurrentState, action, notes)

		return success("review recorded", promptText, nil)
	})
}

// completeTerminalTransition advances task.Status to toolName's terminal
// status and removes the now-finished tool_state.json, in the order
// spec.md §5 requires: task.json first, tool_state.json second.
func (d *Dispatcher) completeTerminalTransition(ctx context.Context, task *domain.Task, toolName, reviewState string) *Result {
	terminal, ok := domain.TerminalStatus[toolName]
	if !ok {
		return failure(fmt.Sprintf("no terminal status declared for tool %q", toolName))
	}
	task.Status = terminal
	if err := d.backend.SaveTask(ctx, task); err != nil {
		return failure(err.Error())
	}
	if err := d.backend.DeleteToolState(ctx, task.TaskID); err != nil {
		return failure(err.Error())
	}
	d.appendScratchpad(ctx, task.TaskID, toolName, reviewState, "ai_approve",
		fmt.Sprintf("task status advanced to %s", terminal))
	return success(
		fmt.Sprintf("%s complete; task %s is now %s", toolName, task.TaskID, terminal),
		"",
		map[string]any{"task_status": string(terminal)},
	)
}

// ApproveAndAdvance implements approve_and_advance(task_id) (spec.md §4.5
// entry #4): a convenience that approves the current review state and,
// if that completes the tool's workflow, immediately enters the next
// tool in the plan -> implement -> review -> test -> finalize lifecycle.
// A non-terminal approval behaves exactly like ProvideReview(true).
func (d *Dispatcher) ApproveAndAdvance(ctx context.Context, taskID string) *Result {
	result := d.ProvideReview(ctx, taskID, true, "")
	if result.Status != StatusSuccess {
		return result
	}
	nextTool, ok := nextToolInLifecycle(result)
	if !ok {
		return result
	}
	return d.EnterWorkflow(ctx, nextTool, taskID)
}

// lifecycleOrder is the fixed tool sequence a task advances through.
var lifecycleOrder = []string{"plan_task", "implement_task", "review_task", "test_task", "finalize_task"}

// nextToolInLifecycle inspects a completed ProvideReview Result's
// task_status data to find which tool just finished, and returns the
// tool that follows it. ok is false when the result wasn't a terminal
// transition (no task_status in Data) or the finished tool was the last
// in the lifecycle.
func nextToolInLifecycle(result *Result) (string, bool) {
	statusVal, hasStatus := result.Data["task_status"]
	if !hasStatus {
		return "", false
	}
	status, _ := statusVal.(string)
	for i, tool := range lifecycleOrder {
		if string(domain.TerminalStatus[tool]) == status && i+1 < len(lifecycleOrder) {
			return lifecycleOrder[i+1], true
		}
	}
	return "", false
}
