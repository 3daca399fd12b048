package dispatch

import (
	"context"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/fsm"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
	"github.com/jmgilman/taskforge/internal/kernel/store"
)

// SubmitWork implements submit_work(task_id, artifact) (spec.md §4.5
// entry #2): validate the artifact against the current state's schema,
// compute the next (review) state, prepare the next prompt, then commit
// the transition and the artifact into context_store in one atomic
// persist. A prompt-builder failure during prepare aborts before any
// persisted state changes.
func (d *Dispatcher) SubmitWork(ctx context.Context, taskID string, artifact map[string]any) *Result {
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
		if !spec.IsWorkState(fsm.State(ws.CurrentState)) {
			return failure((&kerrors.InvalidTransition{
				ToolName: ws.ToolName, CurrentState: ws.CurrentState, Trigger: "submit_work",
			}).Error())
		}

		decoded, verr := d.registry.Validate(ws.ToolName, ws.CurrentState, artifact)
		if verr != nil {
			return failure(verr.Error())
		}
		artifactData, err := artifactMap(decoded)
		if err != nil {
			return failure(err.Error())
		}

		// Prepare: speculate on a clone so failures below never touch the
		// persisted WorkflowState.
		clone := ws.Clone()
		clone.ContextStore[domain.ArtifactKey(ws.CurrentState)] = artifactData

		builder := fsm.NewBuilder(spec)
		machine := builder.At(fsm.State(ws.CurrentState), clone.ContextStore)
		trigger := fsm.SubmitTrigger(fsm.State(ws.CurrentState))
		if !machine.CanFire(trigger) {
			return failure((&kerrors.InvalidTransition{
				ToolName: ws.ToolName, CurrentState: ws.CurrentState,
				Trigger: string(trigger), LegalTriggers: machine.PermittedTriggers(),
			}).Error())
		}
		if err := machine.Fire(trigger); err != nil {
			return failure(err.Error())
		}
		nextState := string(machine.CurrentState())
		clone.CurrentState = nextState

		artifactJSON, err := marshalJSON(artifactData)
		if err != nil {
			return failure(err.Error())
		}
		vars := buildVars(task, ws.ToolName, nextState, artifactJSON, "")
		promptText, err := d.loader.Render(ws.ToolName, nextState, vars)
		if err != nil {
			return failure(err.Error())
		}

		// Commit.
		if err := d.backend.SaveToolState(ctx, clone); err != nil {
			return failure(err.Error())
		}
		d.appendScratchpad(ctx, taskID, ws.ToolName, ws.CurrentState, "submitted", artifactJSON)

		return success("artifact accepted", promptText, nil)
	})
}
