package prompt

import (
	"testing"

	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesKnownVariables(t *testing.T) {
	out := Render("Task ${task_id}: ${task_title}", Vars{TaskID: "T1", TaskTitle: "Add widget"})
	assert.Equal(t, "Task T1: Add widget", out)
}

func TestRender_UnreferencedVariablesLeaveNoTrace(t *testing.T) {
	out := Render("static prompt, no vars", Vars{TaskID: "T1"})
	assert.Equal(t, "static prompt, no vars", out)
}

func TestValidate_RejectsControlFlow(t *testing.T) {
	for _, content := range []string{
		"{{if .X}}yes{{end}}",
		"{% if x %}",
		"plain ${task_id} but also {{oops}}",
	} {
		err := Validate("t.md", content)
		require.Error(t, err)
		var target *kerrors.TemplateMalformed
		assert.ErrorAs(t, err, &target)
	}
}

func TestValidate_RejectsUnknownVariable(t *testing.T) {
	err := Validate("t.md", "hello ${not_a_real_var}")
	require.Error(t, err)
	var target *kerrors.TemplateMalformed
	assert.ErrorAs(t, err, &target)
}

func TestValidate_AcceptsClosedVariableSet(t *testing.T) {
	for _, name := range sortedKnownVars() {
		err := Validate("t.md", "${"+name+"}")
		assert.NoError(t, err, "variable %s should be accepted", name)
	}
}

func TestFormatBulletList(t *testing.T) {
	assert.Equal(t, "", FormatBulletList(nil))
	assert.Equal(t, "- A\n- B", FormatBulletList([]string{"A", "B"}))
}

func TestLoader_AllEmbeddedTemplatesLoadAndValidate(t *testing.T) {
	_, err := NewLoader()
	require.NoError(t, err)
}

func TestLoader_RenderKnownTemplate(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	out, err := l.Render("plan_task", "discovery", Vars{TaskID: "T1", TaskTitle: "Add widget"})
	require.NoError(t, err)
	assert.Contains(t, out, "T1")
	assert.Contains(t, out, "Add widget")
}

func TestLoader_MissingTemplate(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	_, err = l.Render("plan_task", "not_a_state", Vars{})
	require.Error(t, err)
	var target *kerrors.TemplateMissing
	assert.ErrorAs(t, err, &target)
}

func TestLoader_HasTemplate(t *testing.T) {
	l, err := NewLoader()
	require.NoError(t, err)

	assert.True(t, l.HasTemplate("plan_task", "discovery"))
	assert.True(t, l.HasTemplate("plan_task", "review_discovery"))
	assert.False(t, l.HasTemplate("plan_task", "nonexistent"))
}
