package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML block a task descriptor markdown file opens
// with, delimited by `---` lines top and bottom. The body after the
// closing delimiter becomes Context.
type frontmatter struct {
	TaskID                string   `yaml:"task_id"`
	Title                 string   `yaml:"title"`
	ImplementationDetails string   `yaml:"implementation_details"`
	AcceptanceCriteria    []string `yaml:"acceptance_criteria"`
	Priority              string   `yaml:"priority"`
	Status                string   `yaml:"status"`
}

// Dir is a filesystem-backed Provider: one `<task_id>.md` file per task
// in a directory, each a YAML frontmatter block followed by free-form
// markdown context. This is the "filesystem-backed (markdown files in a
// directory)" variant spec.md §6 names explicitly.
type Dir struct {
	root string
}

// NewDir returns a Dir provider rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{root: dir}
}

// GetTask reads and parses <root>/<taskID>.md.
func (d *Dir) GetTask(_ context.Context, taskID string) (*Descriptor, error) {
	path := filepath.Join(d.root, taskID+".md")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read task descriptor %s: %w", path, err)
	}
	return parseDescriptor(raw)
}

// ListReadyTasks reads every descriptor in root whose status is "READY"
// (or empty, treated as READY by convention — a bare descriptor with no
// status line is assumed newly authored and ready to pick up).
func (d *Dir) ListReadyTasks(ctx context.Context) ([]*Descriptor, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read task directory %s: %w", d.root, err)
	}

	var out []*Descriptor
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		taskID := strings.TrimSuffix(e.Name(), ".md")
		desc, err := d.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if desc.Status == "" || desc.Status == "READY" {
			out = append(out, desc)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority.Rank() != out[j].Priority.Rank() {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out, nil
}

// parseDescriptor splits raw into its `---`-delimited frontmatter and
// markdown body, unmarshals the frontmatter, and assigns the body as
// Context.
func parseDescriptor(raw []byte) (*Descriptor, error) {
	content := string(raw)
	const delim = "---"

	if !strings.HasPrefix(content, delim) {
		return nil, fmt.Errorf("task descriptor missing frontmatter delimiter")
	}
	rest := content[len(delim):]
	idx := strings.Index(rest, delim)
	if idx < 0 {
		return nil, fmt.Errorf("task descriptor frontmatter not closed")
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return nil, fmt.Errorf("parse task descriptor frontmatter: %w", err)
	}
	body := strings.TrimSpace(rest[idx+len(delim):])

	if fm.TaskID == "" {
		return nil, fmt.Errorf("task descriptor frontmatter missing task_id")
	}

	return &Descriptor{
		TaskID:                fm.TaskID,
		Title:                 fm.Title,
		Context:               body,
		ImplementationDetails: fm.ImplementationDetails,
		AcceptanceCriteria:    fm.AcceptanceCriteria,
		Priority:              Priority(strings.ToUpper(fm.Priority)),
		Status:                fm.Status,
	}, nil
}
