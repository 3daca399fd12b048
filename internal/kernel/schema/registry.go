// Package schema implements the Artifact Registry (C2): validating a
// submitted artifact against the per-(tool,state) schema declared in
// spec.md §4.2, and normalizing enum fields to their canonical form.
//
// Grounded on the teacher's cli/schemas.CUEValidator and
// libs/schemas/validate_ref_manifest.go, which both use cuelang.org/go
// directly: ctx.Encode(goValue).Unify(schema).Validate(cue.Concrete(true)).
// This package compiles its schema straight from the embedded .cue source
// via cuecontext.CompileBytes rather than the teacher's private
// loader+in-memory-filesystem detour (github.com/jmgilman/go/cue +
// github.com/jmgilman/go/fs/billy) — those packages are internal forks not
// meant for import outside the jmgilman/go monorepo; see DESIGN.md.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/cuecontext"

	"github.com/jmgilman/taskforge/internal/kernel/domain"
	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
)

// entry describes one (tool,state) artifact binding: which CUE definition
// governs it and how to decode a validated payload into its Go type.
type entry struct {
	defName string
	decode  func([]byte) (any, error)
}

// Registry validates artifacts submitted to submit_work against the nine
// schemas in spec.md §4.2.
type Registry struct {
	root    cue.Value
	entries map[string]entry
}

// key identifies one (tool_name, state) pair.
func key(toolName, state string) string { return toolName + "/" + state }

// New compiles the embedded CUE schemas and wires up every (tool,state)
// binding named in spec.md §4.2.
func New() (*Registry, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(artifactsCUE, cue.Filename("artifacts.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile artifact schemas: %w", err)
	}

	r := &Registry{root: root, entries: make(map[string]entry)}
	r.register("plan_task", "discovery", "#ContextDiscoveryArtifact", decodeInto[domain.ContextDiscoveryArtifact])
	r.register("plan_task", "clarification", "#ClarificationArtifact", decodeInto[domain.ClarificationArtifact])
	r.register("plan_task", "contracts", "#ContractDesignArtifact", decodeInto[domain.ContractDesignArtifact])
	r.register("plan_task", "implementation_plan", "#ImplementationPlanArtifact", decodeInto[domain.ImplementationPlanArtifact])
	r.register("plan_task", "validation", "#ValidationArtifact", decodeInto[domain.ValidationArtifact])
	r.register("implement_task", "dispatching", "#ImplementationManifestArtifact", decodeInto[domain.ImplementationManifestArtifact])
	r.register("review_task", "reviewing", "#ReviewArtifact", decodeInto[domain.ReviewArtifact])
	r.register("test_task", "testing", "#TestResultArtifact", decodeInto[domain.TestResultArtifact])
	r.register("finalize_task", "finalizing", "#FinalizationArtifact", decodeInto[domain.FinalizationArtifact])

	for _, e := range r.entries {
		def := root.LookupPath(cue.ParsePath(e.defName))
		if !def.Exists() {
			return nil, fmt.Errorf("schema definition %s not found", e.defName)
		}
	}
	return r, nil
}

func (r *Registry) register(toolName, state, defName string, decode func([]byte) (any, error)) {
	r.entries[key(toolName, state)] = entry{defName: defName, decode: decode}
}

func decodeInto[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// HasSchema reports whether a (tool,state) pair has a registered artifact
// schema. Every work state of the declared workflows has one; Validate
// reports a pair without one as a *kerrors.ValidationError.
func (r *Registry) HasSchema(toolName, state string) bool {
	_, ok := r.entries[key(toolName, state)]
	return ok
}

// Validate normalizes, schema-checks, and decodes a raw artifact payload
// submitted for (toolName, state). On success it returns the strongly
// typed artifact (e.g. *domain.ContextDiscoveryArtifact) ready to store
// under domain.ArtifactKey(state) in a WorkflowState's context_store. On
// failure it returns a *kerrors.ValidationError enumerating every
// offending field — no partial storage ever happens either way.
func (r *Registry) Validate(toolName, state string, raw map[string]any) (any, *kerrors.ValidationError) {
	e, ok := r.entries[key(toolName, state)]
	if !ok {
		return nil, &kerrors.ValidationError{
			ToolName: toolName, State: state,
			Fields: []kerrors.FieldError{{Field: "<schema>", Reason: "no schema registered for this state"}},
		}
	}

	normalized := normalize(raw)

	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, &kerrors.ValidationError{
			ToolName: toolName, State: state,
			Fields: []kerrors.FieldError{{Field: "<payload>", Reason: err.Error()}},
		}
	}

	ctx := r.root.Context()
	encoded := ctx.Encode(normalized)
	if encoded.Err() != nil {
		return nil, &kerrors.ValidationError{
			ToolName: toolName, State: state,
			Fields: []kerrors.FieldError{{Field: "<payload>", Reason: encoded.Err().Error()}},
		}
	}

	def := r.root.LookupPath(cue.ParsePath(e.defName))
	unified := def.Unify(encoded)
	if verr := unified.Validate(cue.Concrete(true)); verr != nil {
		return nil, &kerrors.ValidationError{
			ToolName: toolName, State: state,
			Fields: fieldErrors(verr),
		}
	}

	decoded, err := e.decode(data)
	if err != nil {
		return nil, &kerrors.ValidationError{
			ToolName: toolName, State: state,
			Fields: []kerrors.FieldError{{Field: "<payload>", Reason: err.Error()}},
		}
	}
	return decoded, nil
}

// fieldErrors flattens a CUE validation error into one FieldError per
// offending path, sorted for deterministic output.
func fieldErrors(err error) []kerrors.FieldError {
	var out []kerrors.FieldError
	for _, e := range cueerrors.Errors(err) {
		path := "<root>"
		if p := e.Path(); len(p) > 0 {
			path = joinPath(p)
		}
		out = append(out, kerrors.FieldError{Field: path, Reason: e.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	if len(out) == 0 {
		out = append(out, kerrors.FieldError{Field: "<root>", Reason: err.Error()})
	}
	return out
}

func joinPath(parts []string) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += "."
		}
		s += p
	}
	return s
}
