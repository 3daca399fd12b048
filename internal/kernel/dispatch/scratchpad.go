package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// renderScratchpadEntry formats one human-readable transition record for
// scratchpad.md (spec.md §3: artifacts are "rendered into human-readable
// scratchpad files for auditing"), adapted from the teacher's
// cli/internal/logging.LogEntry.Format(): a front-matter block naming the
// transition, followed by an optional free-form notes section.
func renderScratchpadEntry(taskID, toolName, state, action, notes string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "timestamp: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "task: %s\n", taskID)
	fmt.Fprintf(&b, "tool: %s\n", toolName)
	fmt.Fprintf(&b, "state: %s\n", state)
	fmt.Fprintf(&b, "action: %s\n", action)
	b.WriteString("---\n")
	if notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
		b.WriteString("\n")
	}
	return b.String()
}

// appendScratchpad renders and appends a transition entry to the task's
// scratchpad log. Per spec.md §7, rendering/appending is out of scope for
// correctness: a failure here is logged and never returned to the caller
// or allowed to abort a commit that has already succeeded.
func (d *Dispatcher) appendScratchpad(ctx context.Context, taskID, toolName, state, action, notes string) {
	entry := renderScratchpadEntry(taskID, toolName, state, action, notes)
	if err := d.backend.AppendScratchpad(ctx, taskID, entry); err != nil {
		d.logger.Warn("scratchpad append failed",
			"task_id", taskID, "tool", toolName, "state", state, "action", action, "error", err)
	}
}
