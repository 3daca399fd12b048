package cli

import "github.com/spf13/cobra"

// newEntryCmd builds the cobra command for one of the five workflow-
// initiating tools (plan_task, implement_task, review_task, test_task,
// finalize_task): `taskforge <use> <task-id>`.
func newEntryCmd(use, toolName, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dispatcherFromContext(cmd.Context())
			r := d.EnterWorkflow(cmd.Context(), toolName, args[0])
			return printResult(cmd, r)
		},
	}
}
