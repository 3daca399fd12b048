package fsm

// Branch overrides the default linear successor of a review state's
// ai_approve trigger. The branch always lives on the review state paired
// with the work state it is attached to in Spec.Branches.
//
// Guard is evaluated with the current context_store. IfTrue and IfFalse
// name the work states (or Terminal) to advance to. Because Guard and its
// negation are wired as the only two permitted ai_approve transitions
// (Builder.At), ai_approve is always legal from a branching review
// state — there is no unmet-guard case for a branch to explain, so
// Branch carries no error-message text of its own.
type Branch struct {
	Guard   Guard
	IfTrue  State
	IfFalse State
}

// Spec declares one tool's workflow as an ordered list of work states.
// Builder expands it into the full review-cycle graph: for every work
// state S, a paired review_S state with submit_S (S -> review_S),
// ai_approve (review_S -> next work state, or Terminal after the last
// one), and request_revision (review_S -> S). ToolName records which tool
// the Spec describes; the dispatcher finds a Spec by tool name through
// the Specs map and takes the tool name for its errors from the
// WorkflowState.
//
// Branches lets a specific work state's ai_approve be redirected based on
// a Guard closed over the workflow's context_store, instead of always
// advancing to the next entry in States — this is how the plan_task
// complexity bypass (spec.md §4.5) is expressed as a static table entry
// rather than a runtime branch in the dispatcher.
type Spec struct {
	ToolName string
	States   []State
	Branches map[State]Branch
}

// Initial returns the workflow's first work state.
func (s Spec) Initial() State {
	if len(s.States) == 0 {
		return ""
	}
	return s.States[0]
}

// next returns the work state (or Terminal) that directly follows s in
// States, ignoring any branch override.
func (s Spec) next(curr State) State {
	for i, st := range s.States {
		if st == curr {
			if i+1 < len(s.States) {
				return s.States[i+1]
			}
			return Terminal
		}
	}
	return Terminal
}

// IsWorkState reports whether s is one of the workflow's declared work
// states (as opposed to a review_ state or Terminal).
func (s Spec) IsWorkState(st State) bool {
	for _, w := range s.States {
		if w == st {
			return true
		}
	}
	return false
}
