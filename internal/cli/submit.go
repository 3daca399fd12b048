package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// newSubmitCmd builds `taskforge submit <task-id> [--file artifact.json]`.
// The artifact is read as JSON from the given file, or from stdin when
// --file is omitted — an agent session pipes its artifact straight in.
func newSubmitCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "submit <task-id>",
		Short: "Submit the current state's artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readArtifact(file)
			if err != nil {
				return err
			}
			var artifact map[string]any
			if err := json.Unmarshal(raw, &artifact); err != nil {
				return fmt.Errorf("parse artifact JSON: %w", err)
			}
			d := dispatcherFromContext(cmd.Context())
			r := d.SubmitWork(cmd.Context(), args[0], artifact)
			return printResult(cmd, r)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the artifact JSON file (default: stdin)")
	return cmd
}

func readArtifact(file string) ([]byte, error) {
	if file == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(file)
}
