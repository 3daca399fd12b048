// Package provider implements the Task Provider capability spec.md §6
// describes as "consumed, not implemented": get_task / list_ready_tasks
// over a TaskDescriptor. The kernel treats providers polymorphically;
// this package supplies the filesystem-backed variant spec.md names as
// one of the two example implementations (the other being an
// external-tracker-backed provider, out of scope here).
//
// Grounded on the teacher's cli/internal/project/loader.Load, which
// scans a workspace directory and parses project state, and on
// gopkg.in/yaml.v3 for the frontmatter block — the same serialization
// library the teacher uses throughout libs/config and cli/internal/config
// for on-disk YAML.
package provider

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Provider.GetTask when no task exists for the
// given ID.
var ErrNotFound = errors.New("task not found")

// Priority is the optional scheduling hint get_next_task uses to rank
// eligible tasks.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// priorityRank orders Priority from most to least urgent; unset or
// unrecognized priorities sort last.
var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Rank returns p's sort rank (lower is more urgent); unknown/empty values
// rank last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// Descriptor is a task as reported by a provider: the fields the kernel
// needs to seed a new Task and render its prompts, per spec.md §6.
type Descriptor struct {
	TaskID                string
	Title                 string
	Context               string
	ImplementationDetails string
	AcceptanceCriteria    []string
	Priority              Priority
	Status                string
}

// Provider is the capability the dispatcher's get_next_task consumes.
// Implementations may be filesystem-backed (Dir, below) or backed by an
// external issue tracker.
type Provider interface {
	GetTask(ctx context.Context, taskID string) (*Descriptor, error)
	ListReadyTasks(ctx context.Context) ([]*Descriptor, error)
}
