package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/prompt"
	"github.com/jmgilman/taskforge/internal/kernel/provider"
	"github.com/jmgilman/taskforge/internal/kernel/schema"
	"github.com/jmgilman/taskforge/internal/kernel/store"
)

// stubProvider is a fixed, in-memory provider.Provider for tests: one
// descriptor, always READY.
type stubProvider struct {
	descriptors map[string]*provider.Descriptor
}

func newStubProvider(descs ...*provider.Descriptor) *stubProvider {
	m := make(map[string]*provider.Descriptor, len(descs))
	for _, d := range descs {
		m[d.TaskID] = d
	}
	return &stubProvider{descriptors: m}
}

func (p *stubProvider) GetTask(_ context.Context, taskID string) (*provider.Descriptor, error) {
	d, ok := p.descriptors[taskID]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return d, nil
}

func (p *stubProvider) ListReadyTasks(_ context.Context) ([]*provider.Descriptor, error) {
	var out []*provider.Descriptor
	for _, d := range p.descriptors {
		if d.Status == "" || d.Status == "READY" {
			out = append(out, d)
		}
	}
	return out, nil
}

func newTestDispatcher(t *testing.T, p provider.Provider) (*Dispatcher, *store.MemoryBackend) {
	t.Helper()
	registry, err := schema.New()
	require.NoError(t, err)
	loader, err := prompt.NewLoader()
	require.NoError(t, err)
	backend := store.NewMemoryBackend()
	return New(backend, registry, loader, p, nil), backend
}

func defaultStubProvider() *stubProvider {
	return newStubProvider(&provider.Descriptor{
		TaskID:             "T1",
		Title:              "Implement feature X",
		Context:            "Some task context.",
		AcceptanceCriteria: []string{"A", "B"},
		Status:             "READY",
	})
}

func lowComplexityDiscovery() map[string]any {
	return map[string]any{
		"findings":                "found some stuff",
		"questions":               []any{"Q?"},
		"files_to_modify":         []any{"a.go"},
		"complexity":              "LOW",
		"implementation_context":  map[string]any{},
	}
}

func mediumComplexityDiscovery() map[string]any {
	return map[string]any{
		"findings":               "found some stuff",
		"questions":              []any{"Q?"},
		"files_to_modify":        []any{"a.go"},
		"complexity":             "MEDIUM",
		"implementation_context": map[string]any{},
	}
}

func clarificationArtifact() map[string]any {
	return map[string]any{
		"clarification_dialogue": "discussed scope",
		"decisions":              []any{"use approach A"},
		"additional_constraints": []any{},
	}
}

func contractsArtifact() map[string]any {
	return map[string]any{
		"interface_design":  "interface Foo {...}",
		"contracts_defined": []any{"Foo"},
		"design_notes":      []any{},
	}
}

func implementationPlanArtifact(subtasks ...map[string]any) map[string]any {
	list := make([]any, len(subtasks))
	for i, s := range subtasks {
		list[i] = s
	}
	return map[string]any{
		"implementation_plan": "do the thing",
		"subtasks":            list,
		"risks":               []any{},
	}
}

func validationArtifact(ready bool) map[string]any {
	return map[string]any{
		"validation_summary":       "looks good",
		"ready_for_implementation": ready,
		"issues_found":             []any{},
	}
}

// --- Scenario A: happy-path planning, MEDIUM complexity goes through contracts. ---

func TestScenarioA_HappyPathPlanning(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	r := d.EnterWorkflow(ctx, "plan_task", "T1")
	require.Equal(t, StatusSuccess, r.Status)

	r = d.SubmitWork(ctx, "T1", mediumComplexityDiscovery())
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	r = d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	r = d.SubmitWork(ctx, "T1", clarificationArtifact())
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	r = d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	ws, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "contracts", ws.CurrentState)

	r = d.SubmitWork(ctx, "T1", contractsArtifact())
	require.Equal(t, StatusSuccess, r.Status, r.Message)
	r = d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	r = d.SubmitWork(ctx, "T1", implementationPlanArtifact(
		map[string]any{"subtask_id": "s1", "description": "d1"},
		map[string]any{"subtask_id": "s2", "description": "d2"},
		map[string]any{"subtask_id": "s3", "description": "d3"},
	))
	require.Equal(t, StatusSuccess, r.Status, r.Message)
	r = d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	r = d.SubmitWork(ctx, "T1", validationArtifact(true))
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	r = d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	_, err = backend.LoadToolState(ctx, "T1")
	assert.ErrorIs(t, err, store.ErrNotFound, "tool_state.json must be gone after terminal transition")

	task, err := backend.LoadTask(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyForImpl, task.Status)
}

// --- Scenario B: complexity bypass skips contracts. ---

func TestScenarioB_ComplexityBypassSkipsContracts(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "plan_task", "T1").Status)
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", lowComplexityDiscovery()).Status)
	require.Equal(t, StatusSuccess, d.ProvideReview(ctx, "T1", true, "").Status)
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", clarificationArtifact()).Status)

	r := d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	ws, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "implementation_plan", ws.CurrentState, "LOW complexity must skip contracts")
}

// --- Scenario C: revision cycle preserves earlier context, overwrites the re-submitted artifact and feedback. ---

func TestScenarioC_RevisionCyclePreservesContext(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "plan_task", "T1").Status)
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", mediumComplexityDiscovery()).Status)

	r := d.ProvideReview(ctx, "T1", false, "need more files")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	ws, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "discovery", ws.CurrentState)
	assert.Equal(t, "need more files", ws.ContextStore[domain.FeedbackKey])

	newDiscovery := mediumComplexityDiscovery()
	newDiscovery["findings"] = "found even more stuff"
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", newDiscovery).Status)

	ws, err = backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	artifact, ok := ws.ContextStore[domain.ArtifactKey("discovery")].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "found even more stuff", artifact["findings"])
}

// --- Scenario D: crash recovery. Re-entry after a successful commit returns the same prompt, with no write. ---

func TestScenarioD_CrashRecoveryReentryIsPureRead(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "plan_task", "T1").Status)
	r := d.SubmitWork(ctx, "T1", mediumComplexityDiscovery())
	require.Equal(t, StatusSuccess, r.Status, r.Message)
	firstPrompt := r.NextPrompt

	before, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)

	r2 := d.EnterWorkflow(ctx, "plan_task", "T1")
	require.Equal(t, StatusSuccess, r2.Status)
	assert.Equal(t, firstPrompt, r2.NextPrompt, "re-entry must regenerate the same prompt")

	after, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, before.CurrentState, after.CurrentState)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "re-entry must not write")
}

// --- Scenario E: invalid trigger. ---

func TestScenarioE_InvalidTriggerNamesLegalOnes(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "plan_task", "T1").Status)
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", mediumComplexityDiscovery()).Status)
	require.Equal(t, StatusSuccess, d.ProvideReview(ctx, "T1", true, "").Status)
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", clarificationArtifact()).Status)
	require.Equal(t, StatusSuccess, d.ProvideReview(ctx, "T1", true, "").Status) // -> contracts

	r := d.ProvideReview(ctx, "T1", true, "")
	require.Equal(t, StatusError, r.Status)
	assert.Contains(t, r.Message, "submit_contracts")
}

// --- Boundary: crash between task.json write and tool_state.json unlink recovers on next access. ---

func TestTerminalCrashRecovery_CompletesDeletion(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	task := &domain.Task{TaskID: "T1", Title: "x", Status: domain.StatusReadyForImpl}
	require.NoError(t, backend.SaveTask(ctx, task))
	backend.PutToolStateRaw(&domain.WorkflowState{
		TaskID: "T1", ToolName: "plan_task", CurrentState: "review_validation",
		ContextStore: map[string]any{},
	})

	r := d.EnterWorkflow(ctx, "implement_task", "T1")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	// The stale plan_task state is gone; the only tool state left is the
	// fresh implement_task workflow this entry created.
	ws, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "implement_task", ws.ToolName)
	assert.Equal(t, "dispatching", ws.CurrentState)
}

// --- mark_subtask_complete ---

func TestMarkSubtaskComplete_AppendsAndDedupes(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "implement_task", "T1").Status)

	require.Equal(t, StatusSuccess, d.MarkSubtaskComplete(ctx, "T1", "s1").Status)
	require.Equal(t, StatusSuccess, d.MarkSubtaskComplete(ctx, "T1", "s2").Status)
	require.Equal(t, StatusSuccess, d.MarkSubtaskComplete(ctx, "T1", "s1").Status) // duplicate

	ws, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	completed, ok := ws.ContextStore[domain.CompletedSubtasksKey].([]any)
	require.True(t, ok)
	assert.Len(t, completed, 2)
}

func TestMarkSubtaskComplete_WrongStateRejected(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "review_task", "T1").Status)
	r := d.MarkSubtaskComplete(ctx, "T1", "s1")
	assert.Equal(t, StatusError, r.Status)
}

// --- get_next_task ---

func TestGetNextTask_SingleEligible(t *testing.T) {
	ctx := context.Background()
	p := newStubProvider(&provider.Descriptor{TaskID: "T1", Title: "only", Status: "READY", Priority: provider.PriorityHigh})
	d, _ := newTestDispatcher(t, p)

	r := d.GetNextTask(ctx)
	require.Equal(t, StatusSuccess, r.Status)
	tasks, ok := r.Data["tasks"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "T1", tasks[0]["task_id"])
}

func TestGetNextTask_TiePriorityRequiresChoice(t *testing.T) {
	ctx := context.Background()
	p := newStubProvider(
		&provider.Descriptor{TaskID: "T1", Status: "READY", Priority: provider.PriorityHigh},
		&provider.Descriptor{TaskID: "T2", Status: "READY", Priority: provider.PriorityHigh},
	)
	d, _ := newTestDispatcher(t, p)

	r := d.GetNextTask(ctx)
	assert.Equal(t, StatusChoicesRequired, r.Status)
}

func TestGetNextTask_NoneReady(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, newStubProvider())
	r := d.GetNextTask(ctx)
	assert.Equal(t, StatusSuccess, r.Status)
}

// --- approve_and_advance ---

func TestApproveAndAdvance_EntersNextTool(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "implement_task", "T1").Status)
	require.Equal(t, StatusSuccess, d.SubmitWork(ctx, "T1", map[string]any{
		"summary":            "did the thing",
		"completed_subtasks": []any{"s1"},
		"testing_notes":      "n/a",
	}).Status)

	r := d.ApproveAndAdvance(ctx, "T1")
	require.Equal(t, StatusSuccess, r.Status, r.Message)

	ws, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "review_task", ws.ToolName)
	assert.Equal(t, "reviewing", ws.CurrentState)
}

// --- submit_work against an absent workflow ---

func TestSubmitWork_NoActiveWorkflow(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDispatcher(t, defaultStubProvider())
	r := d.SubmitWork(ctx, "T1", mediumComplexityDiscovery())
	assert.Equal(t, StatusError, r.Status)
}

// --- submit_work with an invalid artifact ---

func TestSubmitWork_ValidationFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	d, backend := newTestDispatcher(t, defaultStubProvider())

	require.Equal(t, StatusSuccess, d.EnterWorkflow(ctx, "plan_task", "T1").Status)
	before, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)

	r := d.SubmitWork(ctx, "T1", map[string]any{"complexity": "NOT_A_LEVEL"})
	assert.Equal(t, StatusError, r.Status)

	after, err := backend.LoadToolState(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, before.CurrentState, after.CurrentState)
}
