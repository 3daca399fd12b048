// Package domain holds the persisted record types of the workflow kernel:
// Task, WorkflowState, and the artifact envelope that lives in a workflow's
// context store.
//
// Struct fields are declared in alphabetical order on purpose. The on-disk
// format (spec.md §6) requires bit-stable JSON with sorted keys; Go's
// encoding/json already sorts map keys, and serializes struct fields in
// declaration order, so alphabetical declaration order gives deterministic
// output for both without a custom encoder.
package domain

import "time"

// Status is the mutable lifecycle status of a Task.
type Status string

const (
	StatusNew                  Status = "NEW"
	StatusPlanning             Status = "PLANNING"
	StatusReadyForImpl         Status = "READY_FOR_IMPL"
	StatusInProgress           Status = "IN_PROGRESS"
	StatusReadyForReview       Status = "READY_FOR_REVIEW"
	StatusInReview             Status = "IN_REVIEW"
	StatusReadyForTesting      Status = "READY_FOR_TESTING"
	StatusInTesting            Status = "IN_TESTING"
	StatusReadyForFinalization Status = "READY_FOR_FINALIZATION"
	StatusDone                 Status = "DONE"
)

// Task is the immutable descriptive record for a unit of work, plus its
// mutable status. Descriptive fields are sourced from an external
// TaskProvider (provider.Provider); only Status is advanced by the
// kernel itself, and only on terminal-state completion of a tool
// (dispatch.Dispatcher).
type Task struct {
	AcceptanceCriteria    []string  `json:"acceptance_criteria"`
	Context               string    `json:"context"`
	CreatedAt             time.Time `json:"created_at"`
	ImplementationDetails string    `json:"implementation_details"`
	Status                Status    `json:"status"`
	TaskID                string    `json:"task_id"`
	Title                 string    `json:"title"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TerminalStatus maps each workflow tool to the Task.Status it advances to
// when that tool's FSM reaches its terminal state (spec.md §4.5).
var TerminalStatus = map[string]Status{
	"plan_task":      StatusReadyForImpl,
	"implement_task": StatusReadyForReview,
	"review_task":    StatusReadyForTesting,
	"test_task":      StatusReadyForFinalization,
	"finalize_task":  StatusDone,
}
