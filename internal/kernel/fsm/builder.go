package fsm

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"
)

// Builder expands a declarative Spec into the full review-cycle state
// graph and instantiates a fresh *stateless.StateMachine at a given
// state, mirroring the teacher's pattern of rebuilding the machine on
// every load (statechart.NewMachineAt) rather than keeping one long-lived
// machine per workflow.
type Builder struct {
	spec Spec
}

// NewBuilder wraps spec for machine construction. The caller owns spec
// and should treat it as immutable once passed in; the five concrete
// workflow specs in workflows.go are built once at package init and
// reused across every call.
func NewBuilder(spec Spec) *Builder {
	return &Builder{spec: spec}
}

// Spec returns the underlying workflow spec.
func (b *Builder) Spec() Spec { return b.spec }

// At rebuilds the tool's full state graph and returns a Machine
// positioned at currentState, with any branch guards closed over
// contextStore. contextStore should be the workflow's context_store at
// the moment the machine is constructed; since a Machine is rebuilt on
// every dispatcher call (never held across calls), a guard always sees
// the context_store as of that call.
func (b *Builder) At(currentState State, contextStore map[string]any) *Machine {
	sm := stateless.NewStateMachine(string(currentState))

	for _, work := range b.spec.States {
		review := ReviewOf(work)

		sm.Configure(string(work)).
			Permit(stateless.Trigger(SubmitTrigger(work)), string(review))

		reviewCfg := sm.Configure(string(review)).
			Permit(stateless.Trigger(TriggerRevise), string(work))

		if branch, ok := b.spec.Branches[work]; ok {
			guard := guardFunc(branch.Guard, contextStore)
			reviewCfg.
				PermitIf(stateless.Trigger(TriggerApprove), string(branch.IfTrue), guard).
				PermitIf(stateless.Trigger(TriggerApprove), string(branch.IfFalse), negate(guard))
		} else {
			next := b.spec.next(work)
			reviewCfg.Permit(stateless.Trigger(TriggerApprove), string(next))
		}
	}

	b.setupUnhandledTrigger(sm)

	return &Machine{fsm: sm}
}

// negate inverts a stateless guard function.
func negate(g func(context.Context, ...any) bool) func(context.Context, ...any) bool {
	return func(ctx context.Context, args ...any) bool { return !g(ctx, args...) }
}

// setupUnhandledTrigger mirrors the teacher's
// MachineBuilder.setupUnhandledTriggerHandler: it turns stateless's
// generic "trigger not configured" failure into a message naming the
// state and trigger, for kerrors.InvalidTransition to surface. The
// dispatcher itself builds the InvalidTransition value (it also needs
// PermittedTriggers), so this handler only needs to prevent stateless
// from panicking/erroring in a way that loses the state name.
func (b *Builder) setupUnhandledTrigger(sm *stateless.StateMachine) {
	sm.OnUnhandledTrigger(func(_ context.Context, state, trigger any, _ []string) error {
		return fmt.Errorf("trigger %q is not valid from state %q", trigger, state)
	})
}
