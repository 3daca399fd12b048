// Package dispatch implements the Tool Dispatcher (C5): the public entry
// points plan_task/implement_task/review_task/test_task/finalize_task,
// submit_work, provide_review, approve_and_advance,
// mark_subtask_complete, and get_next_task. It orchestrates C1 (store),
// C2 (schema), C3 (fsm), and C4 (prompt) behind the prepare/commit
// protocol of spec.md §4.5.
//
// Grounded on the teacher's cli/cmd/agent/task/*.go commands (load ->
// operate via the domain type -> fire the FSM event -> save), generalized
// from a cobra RunE body into a plain Go API returning a typed Result
// instead of writing to a *cobra.Command. Per-task serialization is
// enriched from cloudshipai-station's SessionManager (see lock.go).
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/fsm"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
	"github.com/jmgilman/taskforge/internal/kernel/klog"
	"github.com/jmgilman/taskforge/internal/kernel/prompt"
	"github.com/jmgilman/taskforge/internal/kernel/provider"
	"github.com/jmgilman/taskforge/internal/kernel/schema"
	"github.com/jmgilman/taskforge/internal/kernel/store"
)

// Dispatcher is the kernel's public surface. One Dispatcher serves every
// task concurrently; per-task serialization is internal (lock.go).
type Dispatcher struct {
	backend  store.Backend
	registry *schema.Registry
	loader   *prompt.Loader
	provider provider.Provider
	logger   *log.Logger

	locks taskLocks
}

// New constructs a Dispatcher from its collaborators. p may be nil if
// neither get_next_task nor first-entry task seeding (loadTaskAndRecover)
// will ever be exercised — i.e. every task.json is pre-populated by some
// other means before the kernel sees it.
func New(backend store.Backend, registry *schema.Registry, loader *prompt.Loader, p provider.Provider, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = klog.Default()
	}
	return &Dispatcher{backend: backend, registry: registry, loader: loader, provider: p, logger: logger}
}

// workflowSpec returns the declarative fsm.Spec for toolName, or an error
// if toolName names no known workflow tool.
func workflowSpec(toolName string) (fsm.Spec, error) {
	spec, ok := fsm.Specs[toolName]
	if !ok {
		return fsm.Spec{}, fmt.Errorf("unknown tool %q", toolName)
	}
	return spec, nil
}

// buildVars assembles the closed prompt.Vars set for a given point in a
// workflow: the task's descriptive fields plus the artifact/feedback
// context specific to the current call.
func buildVars(task *domain.Task, toolName, state, artifactJSON, feedback string) prompt.Vars {
	return prompt.Vars{
		TaskID:                task.TaskID,
		ToolName:              toolName,
		CurrentState:          state,
		TaskTitle:             task.Title,
		TaskContext:           task.Context,
		ImplementationDetails: task.ImplementationDetails,
		AcceptanceCriteria:    prompt.FormatBulletList(task.AcceptanceCriteria),
		ArtifactJSON:          artifactJSON,
		Feedback:              feedback,
	}
}

// recoverTerminalCrash completes a terminal transition that crashed
// between the task.json write and the tool_state.json unlink (spec.md
// §5's "terminal transition atomicity" recovery rule): if the persisted
// WorkflowState sits at review_<last state> for toolName and the task's
// status already reflects that tool's terminal status, the WorkflowState
// is a stale leftover and is deleted.
func (d *Dispatcher) recoverTerminalCrash(ctx context.Context, taskID, toolName string, ws *domain.WorkflowState, task *domain.Task) error {
	if ws == nil || ws.ToolName != toolName {
		return nil
	}
	spec, err := workflowSpec(toolName)
	if err != nil {
		return nil
	}
	states := spec.States
	if len(states) == 0 {
		return nil
	}
	lastReview := string(fsm.ReviewOf(states[len(states)-1]))
	if ws.CurrentState != lastReview {
		return nil
	}
	terminal, ok := domain.TerminalStatus[toolName]
	if !ok || task.Status != terminal {
		return nil
	}
	d.logger.Warn("completing crashed terminal transition", "task_id", taskID, "tool", toolName)
	return d.backend.DeleteToolState(ctx, taskID)
}

// loadTaskAndRecover loads the task and tool state for taskID, first
// completing any crashed terminal transition of the persisted workflow,
// whichever tool it belongs to (so entering the next tool after a crash
// clears the previous tool's leftover state). If no task.json
// exists yet, it is seeded from the configured provider.Provider (the
// task source named but not implemented by spec.md §6) and persisted
// before returning, so the very first workflow entry for a task the
// kernel has never seen still has a Task to render prompts from.
func (d *Dispatcher) loadTaskAndRecover(ctx context.Context, taskID, toolName string) (*domain.Task, *domain.WorkflowState, error) {
	task, err := d.backend.LoadTask(ctx, taskID)
	if err != nil {
		if err != store.ErrNotFound {
			return nil, nil, err
		}
		task, err = d.seedTaskFromProvider(ctx, taskID)
		if err != nil {
			return nil, nil, err
		}
	}
	ws, err := d.backend.LoadToolState(ctx, taskID)
	if err != nil {
		if err == store.ErrNotFound {
			return task, nil, nil
		}
		return nil, nil, err
	}

	if rerr := d.recoverTerminalCrash(ctx, taskID, ws.ToolName, ws, task); rerr != nil {
		return nil, nil, rerr
	}
	if lastState := mustLastState(ws.ToolName); lastState != "" &&
		ws.CurrentState == string(fsm.ReviewOf(lastState)) &&
		task.Status == domain.TerminalStatus[ws.ToolName] {
		return task, nil, nil // recovered: workflow no longer exists
	}
	return task, ws, nil
}

// seedTaskFromProvider fetches taskID's descriptive fields from the
// configured provider and persists a fresh NEW-status Task, the one time
// a task's descriptor is copied into the kernel's own workspace (spec.md
// §3: descriptive fields are "sourced externally"; thereafter the kernel
// owns task.json exclusively, per §5's shared-resources rule).
func (d *Dispatcher) seedTaskFromProvider(ctx context.Context, taskID string) (*domain.Task, error) {
	if d.provider == nil {
		return nil, fmt.Errorf("no task provider configured; task %s not found", taskID)
	}
	desc, err := d.provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("fetch task %s from provider: %w", taskID, err)
	}
	task := &domain.Task{
		TaskID:                desc.TaskID,
		Title:                 desc.Title,
		Context:               desc.Context,
		ImplementationDetails: desc.ImplementationDetails,
		AcceptanceCriteria:    desc.AcceptanceCriteria,
		Status:                domain.StatusNew,
		CreatedAt:             time.Now().UTC().Truncate(time.Second),
	}
	if err := d.backend.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func mustLastState(toolName string) fsm.State {
	spec, ok := fsm.Specs[toolName]
	if !ok || len(spec.States) == 0 {
		return ""
	}
	return spec.States[len(spec.States)-1]
}

// artifactMap round-trips a decoded, schema-validated artifact through
// JSON into map[string]any, the representation context_store always
// holds after a disk round trip (encoding/json decodes `any` fields into
// maps). Storing it this way even in the same in-process call keeps
// Branch guards (fsm.Guard) working identically whether the workflow was
// just created or reloaded from disk.
func artifactMap(artifact any) (map[string]any, error) {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func noActiveWorkflow(taskID, toolName string) *kerrors.NoActiveWorkflow {
	return &kerrors.NoActiveWorkflow{TaskID: taskID, ToolName: toolName}
}

// marshalJSON renders v as indented JSON for the artifact_json prompt
// variable (spec.md §4.4: "pre-serialized JSON of the most recent
// artifact").
func marshalJSON(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
