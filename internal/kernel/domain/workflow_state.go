package domain

import "time"

// WorkflowState is the persisted record of one active (task_id, tool_name)
// workflow. At most one exists per pair (spec.md invariant 1).
type WorkflowState struct {
	ContextStore map[string]any `json:"context_store"`
	CreatedAt    time.Time      `json:"created_at"`
	CurrentState string         `json:"current_state"`
	TaskID       string         `json:"task_id"`
	ToolName     string         `json:"tool_name"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Clone returns a deep-enough copy of the state for prepare-phase
// speculation: the dispatcher builds a hypothetical next state during
// "prepare" without mutating the state that commit() will later persist
// on success, and without mutating it at all on failure.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	clone := *s
	clone.ContextStore = make(map[string]any, len(s.ContextStore))
	for k, v := range s.ContextStore {
		clone.ContextStore[k] = v
	}
	return &clone
}

// ArtifactKey returns the conventional context_store key under which an
// artifact submitted while in state `state` is stored.
func ArtifactKey(state string) string {
	return state + "_artifact"
}

// FeedbackKey is the conventional context_store key for reviewer notes
// attached by provide_review on request_revision.
const FeedbackKey = "feedback_notes"

// CompletedSubtasksKey is the conventional context_store key under which
// mark_subtask_complete appends incremental progress reports.
const CompletedSubtasksKey = "completed_subtasks"
