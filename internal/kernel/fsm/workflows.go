package fsm

// The five tool workflows declared in spec.md §4.3's table. Each is built
// once and shared: a Spec is immutable data, and every dispatcher call
// asks its Builder for a fresh Machine via Builder.At.

// PlanTask is plan_task's workflow: discovery -> clarification ->
// [contracts] -> implementation_plan -> validation -> terminal.
//
// The contracts phase is skipped when the discovery artifact reports
// complexity=LOW (spec.md §4.5, Open Question #2 — see SPEC_FULL.md and
// DESIGN.md for why the guard reads only complexity and not subtask
// count). This is expressed as a Branch on review_clarification's
// ai_approve trigger, not a runtime conditional in the dispatcher.
var PlanTask = Spec{
	ToolName: "plan_task",
	States:   []State{"discovery", "clarification", "contracts", "implementation_plan", "validation"},
	Branches: map[State]Branch{
		"clarification": {
			Guard:   discoveryComplexityIsLow,
			IfTrue:  "implementation_plan",
			IfFalse: "contracts",
		},
	},
}

// ImplementTask is implement_task's workflow: dispatching -> terminal.
var ImplementTask = Spec{
	ToolName: "implement_task",
	States:   []State{"dispatching"},
}

// ReviewTask is review_task's workflow: reviewing -> terminal.
var ReviewTask = Spec{
	ToolName: "review_task",
	States:   []State{"reviewing"},
}

// TestTask is test_task's workflow: testing -> terminal.
var TestTask = Spec{
	ToolName: "test_task",
	States:   []State{"testing"},
}

// FinalizeTask is finalize_task's workflow: finalizing -> terminal.
var FinalizeTask = Spec{
	ToolName: "finalize_task",
	States:   []State{"finalizing"},
}

// Specs maps every tool name to its workflow spec, for dispatcher lookup.
var Specs = map[string]Spec{
	"plan_task":      PlanTask,
	"implement_task": ImplementTask,
	"review_task":    ReviewTask,
	"test_task":      TestTask,
	"finalize_task":  FinalizeTask,
}

// discoveryComplexityIsLow is the Branch.Guard for plan_task's
// contracts-skip: true when the discovery_artifact stored under
// domain.ArtifactKey("discovery") reports complexity LOW.
//
// This package cannot import internal/kernel/domain's ArtifactKey helper
// without creating an import cycle risk with dispatch, so the key is
// spelled out directly; domain.ArtifactKey("discovery") produces the same
// string ("discovery_artifact").
func discoveryComplexityIsLow(contextStore map[string]any) bool {
	raw, ok := contextStore["discovery_artifact"]
	if !ok {
		return false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return false
	}
	complexity, _ := m["complexity"].(string)
	return complexity == "LOW"
}
