// Package prompt implements the Prompt Builder (C4): loading a static
// template for the current (tool, state) and substituting a fixed set of
// context variables.
//
// Grounded on the teacher's cli/internal/templates.Render (embedded
// filesystem, one render entrypoint, path-is-relative-to-embed-root) and
// cli/internal/prompts (the state-to-template-path convention). Unlike
// the teacher, this package does not use text/template: spec.md §4.4 and
// §9 require templates to contain only `${variable}` placeholders with
// no conditionals, loops, or expressions, and text/template is exactly
// the control-flow engine that forbids. See DESIGN.md for why no
// substitution-only template library from the example pack fits either,
// making this the one ambient concern intentionally built on the
// standard library.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
)

// Vars is the closed set of context variables a template may reference
// (spec.md §4.4). Values are pre-formatted strings: acceptance_criteria
// is already a bullet list, artifact_json is already serialized JSON.
type Vars struct {
	TaskID                string
	ToolName              string
	CurrentState          string
	TaskTitle             string
	TaskContext           string
	ImplementationDetails string
	AcceptanceCriteria    string
	ArtifactJSON          string
	Feedback              string
}

// asMap renders Vars as the name -> value substitution table.
func (v Vars) asMap() map[string]string {
	return map[string]string{
		"task_id":                v.TaskID,
		"tool_name":              v.ToolName,
		"current_state":          v.CurrentState,
		"task_title":             v.TaskTitle,
		"task_context":           v.TaskContext,
		"implementation_details": v.ImplementationDetails,
		"acceptance_criteria":    v.AcceptanceCriteria,
		"artifact_json":          v.ArtifactJSON,
		"feedback":               v.Feedback,
	}
}

// controlFlowPattern matches the control-flow syntax spec.md §4.4 forbids
// in a template: `{%`, `%}`, `{{`, `}}`.
var controlFlowPattern = regexp.MustCompile(`\{%|%\}|\{\{|\}\}`)

// placeholderPattern matches a `${name}` placeholder.
var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Validate rejects a template at load time: it must not contain
// control-flow syntax, and every placeholder it references must be one
// of the closed Vars fields.
func Validate(path, content string) error {
	if controlFlowPattern.MatchString(content) {
		return &kerrors.TemplateMalformed{Path: path, Reason: "contains control-flow syntax ({{, }}, {%, or %})"}
	}

	known := (Vars{}).asMap()
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		name := m[1]
		if _, ok := known[name]; !ok {
			return &kerrors.TemplateMalformed{Path: path, Reason: fmt.Sprintf("references unknown variable %q", name)}
		}
	}
	return nil
}

// Render substitutes every `${name}` placeholder in content with its
// value from vars. Render assumes content already passed Validate; it
// does not re-check for control-flow syntax or unknown variables, so
// that a caller can validate once at load time and render many times.
func Render(content string, vars Vars) string {
	table := vars.asMap()
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return table[name]
	})
}

// FormatBulletList renders a string slice as the `acceptance_criteria`
// variable's pre-formatted bullet list, one `- ` prefixed line per entry.
func FormatBulletList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}

// sortedKnownVars is exposed for tests asserting the closed variable set.
func sortedKnownVars() []string {
	known := (Vars{}).asMap()
	names := make([]string, 0, len(known))
	for k := range known {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
