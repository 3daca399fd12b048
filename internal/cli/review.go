package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReviewCmd builds `taskforge review <task-id> --approve|--revise [--feedback text]`.
func newReviewCmd() *cobra.Command {
	var approve, revise bool
	var feedback string

	cmd := &cobra.Command{
		Use:   "review <task-id>",
		Short: "Approve or request revision on the current review state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if approve == revise {
				return errExactlyOneOf("--approve", "--revise")
			}
			d := dispatcherFromContext(cmd.Context())
			r := d.ProvideReview(cmd.Context(), args[0], approve, feedback)
			return printResult(cmd, r)
		},
	}
	cmd.Flags().BoolVar(&approve, "approve", false, "approve the current artifact")
	cmd.Flags().BoolVar(&revise, "revise", false, "request revision")
	cmd.Flags().StringVar(&feedback, "feedback", "", "reviewer notes (used with --revise)")
	return cmd
}

// newAdvanceCmd builds `taskforge advance <task-id>`: approve_and_advance.
func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <task-id>",
		Short: "Approve the current review state and enter the next tool in the lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := dispatcherFromContext(cmd.Context())
			r := d.ApproveAndAdvance(cmd.Context(), args[0])
			return printResult(cmd, r)
		},
	}
}

func errExactlyOneOf(a, b string) error {
	return fmt.Errorf("exactly one of %s or %s is required", a, b)
}
