// Package kerrors defines the error taxonomy returned by the workflow kernel.
//
// Every failure mode a caller can observe is one of the types below. The
// dispatcher never returns a bare error for an expected condition — it
// translates these into the RPC result envelope (dispatch.Result) — but the
// types remain useful for callers that want errors.As/errors.Is checks in
// tests or in code that builds directly against the kernel packages.
package kerrors

import "fmt"

// ValidationError reports that a submitted artifact failed schema validation.
// Fields lists every offending field with a human-readable reason.
type ValidationError struct {
	ToolName string
	State    string
	Fields   []FieldError
}

// FieldError names one offending field and why it was rejected.
type FieldError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation failed for %s/%s", e.ToolName, e.State)
	}
	return fmt.Sprintf("validation failed for %s/%s: %s", e.ToolName, e.State, e.Fields[0].describe())
}

func (f FieldError) describe() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Reason)
}

// InvalidTransition reports that a trigger is not legal from the current state.
type InvalidTransition struct {
	ToolName      string
	CurrentState  string
	Trigger       string
	LegalTriggers []string
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf(
		"trigger %q is not valid from state %q of %s (legal triggers: %v)",
		e.Trigger, e.CurrentState, e.ToolName, e.LegalTriggers,
	)
}

// NoActiveWorkflow reports that an operation requires a WorkflowState that
// does not exist for the given task/tool pair.
type NoActiveWorkflow struct {
	TaskID   string
	ToolName string
}

func (e *NoActiveWorkflow) Error() string {
	return fmt.Sprintf("no active %s workflow for task %s", e.ToolName, e.TaskID)
}

// TemplateMissing reports that a prompt template file does not exist at the
// expected deterministic path.
type TemplateMissing struct {
	Path string
}

func (e *TemplateMissing) Error() string {
	return fmt.Sprintf("prompt template missing: %s", e.Path)
}

// TemplateMalformed reports that a prompt template failed the load-time
// contract check (control-flow syntax present, or an unrecognized variable).
type TemplateMalformed struct {
	Path   string
	Reason string
}

func (e *TemplateMalformed) Error() string {
	return fmt.Sprintf("prompt template malformed (%s): %s", e.Path, e.Reason)
}

// PersistenceCorrupted reports that on-disk state could not be parsed.
type PersistenceCorrupted struct {
	Path  string
	Cause error
}

func (e *PersistenceCorrupted) Error() string {
	return fmt.Sprintf("persisted state at %s is corrupted: %v", e.Path, e.Cause)
}

func (e *PersistenceCorrupted) Unwrap() error { return e.Cause }

// IOError reports a transient filesystem failure. The prepare phase that
// surfaces this aborts without mutating any persisted state.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s on %s: %v", e.Op, e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }
