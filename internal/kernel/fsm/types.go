// Package fsm implements the FSM Engine (C3): one declarative state
// machine per (task_id, tool_name) pair, generated from the review-cycle
// pattern in spec.md §4.3.
//
// Grounded on the teacher's libs/project and cli/internal/statechart
// packages, which wrap github.com/qmuntal/stateless behind a
// State/Event string-type pair and a Machine that rebuilds a fresh
// *stateless.StateMachine at a given state on every load
// (statechart.NewMachineAt, which calls m.configure() itself). This
// package keeps that shape but replaces the teacher's open-ended,
// hand-declared phase graph with a closed generator: give it an ordered
// list of work states and it wires every submit_S / ai_approve /
// request_revision edge itself, instead of the caller declaring each
// transition by hand.
package fsm

import (
	"context"

	"github.com/qmuntal/stateless"
)

// State is a named node in a tool's FSM: a work state (e.g. "discovery")
// or its paired review state ("review_discovery").
type State string

// ReviewOf returns the review state paired with a work state.
func ReviewOf(s State) State { return State("review_" + string(s)) }

// Trigger is a named edge. The three canonical forms from spec.md §4.3
// are SubmitTrigger(s), TriggerApprove, and TriggerRevise.
type Trigger string

const (
	// TriggerApprove fires from a review_S state on a positive review,
	// advancing to the next work state (or the terminal state).
	TriggerApprove Trigger = "ai_approve"

	// TriggerRevise fires from a review_S state on a negative review,
	// returning to S.
	TriggerRevise Trigger = "request_revision"
)

// SubmitTrigger is the submit_<state> trigger fired from work state s.
func SubmitTrigger(s State) Trigger { return Trigger("submit_" + string(s)) }

// Terminal is the pseudo-state the machine is driven into by the final
// review state's ai_approve. It is never a real work state; the
// dispatcher observes it and performs the terminal transition (spec.md
// §4.6) rather than building a prompt for it.
const Terminal State = "__terminal__"

// Guard reports whether a branch transition (see Spec.Branches) may
// fire, given the workflow's current context_store. It is evaluated at
// the moment ai_approve fires from the branching review state.
type Guard func(contextStore map[string]any) bool

// Machine is a tool's FSM, rebuilt fresh at the caller's recorded
// current_state on every dispatcher call (see Builder.At), mirroring
// the teacher's statechart.NewMachineAt.
type Machine struct {
	fsm *stateless.StateMachine
}

// CurrentState returns the machine's current state.
func (m *Machine) CurrentState() State {
	s := m.fsm.MustState()
	str, ok := s.(string)
	if !ok {
		return State("")
	}
	return State(str)
}

// CanFire reports whether trigger can legally fire from the current state.
func (m *Machine) CanFire(trigger Trigger) bool {
	can, _ := m.fsm.CanFire(stateless.Trigger(trigger))
	return can
}

// Fire triggers a transition.
func (m *Machine) Fire(trigger Trigger) error {
	return m.fsm.Fire(stateless.Trigger(trigger))
}

// PermittedTriggers returns every trigger that can legally fire from the
// current state, used to populate kerrors.InvalidTransition.LegalTriggers.
func (m *Machine) PermittedTriggers() []string {
	triggers, _ := m.fsm.PermittedTriggers()
	out := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if s, ok := t.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// guardFunc adapts a Guard closed over a fixed context_store snapshot to
// the signature stateless.StateConfiguration.Permit expects.
func guardFunc(g Guard, contextStore map[string]any) func(context.Context, ...any) bool {
	return func(_ context.Context, _ ...any) bool {
		return g(contextStore)
	}
}
