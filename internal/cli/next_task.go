package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// newNextTaskCmd builds `taskforge next-task`.
func newNextTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-task",
		Short: "Find the highest-priority ready task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := dispatcherFromContext(cmd.Context())
			r := d.GetNextTask(cmd.Context())
			if r.Data != nil {
				raw, err := json.MarshalIndent(r.Data, "", "  ")
				if err == nil {
					cmd.Println(string(raw))
				}
			}
			return printResult(cmd, r)
		},
	}
}
