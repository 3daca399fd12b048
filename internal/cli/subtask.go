package cli

import "github.com/spf13/cobra"

// newSubtaskCmd builds `taskforge subtask-complete <task-id> <subtask-id>`.
func newSubtaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subtask-complete <task-id> <subtask-id>",
		Short: "Report a subtask complete during implement_task's dispatching state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dispatcherFromContext(cmd.Context())
			r := d.MarkSubtaskComplete(cmd.Context(), args[0], args[1])
			return printResult(cmd, r)
		},
	}
}
