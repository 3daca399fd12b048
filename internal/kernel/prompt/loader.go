package prompt

import (
	"embed"
	"fmt"

	"github.com/jmgilman/taskforge/internal/kernel/kerrors"
)

//go:embed templates/*/*.md
var templatesFS embed.FS

// templatePath returns the deterministic path for a (tool, state) prompt,
// mirroring the teacher's <dir>/<name>.md convention
// (cli/internal/prompts).
func templatePath(toolName, state string) string {
	return fmt.Sprintf("templates/%s/%s.md", toolName, state)
}

// Loader holds every embedded template's content, pre-validated at
// construction so TemplateMalformed can never surface mid-workflow — only
// at startup, where a configuration defect belongs.
type Loader struct {
	content map[string]string
}

// NewLoader reads and validates every embedded template. It fails closed:
// any template with control-flow syntax or an unrecognized variable
// reference aborts construction, since this is a configuration defect
// spec.md §8 says must never corrupt persisted state.
func NewLoader() (*Loader, error) {
	l := &Loader{content: make(map[string]string)}

	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	for _, toolDir := range entries {
		if !toolDir.IsDir() {
			continue
		}
		stateFiles, err := templatesFS.ReadDir("templates/" + toolDir.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded templates for %s: %w", toolDir.Name(), err)
		}
		for _, f := range stateFiles {
			if f.IsDir() {
				continue
			}
			path := "templates/" + toolDir.Name() + "/" + f.Name()
			raw, err := templatesFS.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read embedded template %s: %w", path, err)
			}
			if err := Validate(path, string(raw)); err != nil {
				return nil, err
			}
			l.content[path] = string(raw)
		}
	}
	return l, nil
}

// Render loads the template for (toolName, state), substitutes vars, and
// returns the finished prompt. TemplateMissing is returned when no
// template file exists for that (tool, state) pair.
func (l *Loader) Render(toolName, state string, vars Vars) (string, error) {
	path := templatePath(toolName, state)
	content, ok := l.content[path]
	if !ok {
		return "", &kerrors.TemplateMissing{Path: path}
	}
	return Render(content, vars), nil
}

// HasTemplate reports whether a template is registered for (toolName, state).
func (l *Loader) HasTemplate(toolName, state string) bool {
	_, ok := l.content[templatePath(toolName, state)]
	return ok
}
