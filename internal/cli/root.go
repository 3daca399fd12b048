// Package cli wires the workflow kernel's dispatcher (internal/kernel/dispatch)
// behind a cobra CLI. Per spec.md §1, CLI wiring is explicitly out of scope
// for correctness — this package is a thin, demonstrative driver, grounded
// on the teacher's cli/cmd/root.go construction style (PersistentPreRunE
// resolves shared dependencies once, subcommands consume them from the
// command's context).
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmgilman/taskforge/internal/kernel/config"
	"github.com/jmgilman/taskforge/internal/kernel/dispatch"
	"github.com/jmgilman/taskforge/internal/kernel/klog"
	"github.com/jmgilman/taskforge/internal/kernel/prompt"
	"github.com/jmgilman/taskforge/internal/kernel/provider"
	"github.com/jmgilman/taskforge/internal/kernel/schema"
	"github.com/jmgilman/taskforge/internal/kernel/store"
)

// Version is set at build time via ldflags, mirroring the teacher's cmd/sow.
var Version = "dev"

type dispatcherKey struct{}

// dispatcherFromContext retrieves the Dispatcher a subcommand's PersistentPreRunE
// stashed on the root context.
func dispatcherFromContext(ctx context.Context) *dispatch.Dispatcher {
	d, _ := ctx.Value(dispatcherKey{}).(*dispatch.Dispatcher)
	return d
}

// NewRootCmd builds the taskforge CLI.
func NewRootCmd() *cobra.Command {
	var workspaceRoot string
	var verbose, quiet bool

	root := &cobra.Command{
		Use:           "taskforge",
		Short:         "Workflow kernel for disciplined AI-agent task execution",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if workspaceRoot == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve working directory: %w", err)
				}
				workspaceRoot = cwd
			}
			cfg, err := config.Load(workspaceRoot)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if verbose {
				cfg.Verbose = true
			}
			if quiet {
				cfg.Quiet = true
			}
			logger := klog.New(os.Stderr, cfg.Verbose, cfg.Quiet)

			registry, err := schema.New()
			if err != nil {
				return fmt.Errorf("compile artifact schemas: %w", err)
			}
			loader, err := prompt.NewLoader()
			if err != nil {
				return fmt.Errorf("load prompt templates: %w", err)
			}
			backend := store.NewFSBackend(cfg.WorkspaceRoot)
			taskProvider := provider.NewDir(cfg.TaskDescriptorDir)

			d := dispatch.New(backend, registry, loader, taskProvider, logger)
			cmd.SetContext(context.WithValue(cmd.Context(), dispatcherKey{}, d))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&workspaceRoot, "workspace", "", "workspace root (default: current directory)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-warning logging")

	root.AddCommand(
		newEntryCmd("plan-task", "plan_task", "Enter or resume a task's planning workflow"),
		newEntryCmd("implement-task", "implement_task", "Enter or resume a task's implementation workflow"),
		newEntryCmd("review-task", "review_task", "Enter or resume a task's review workflow"),
		newEntryCmd("test-task", "test_task", "Enter or resume a task's testing workflow"),
		newEntryCmd("finalize-task", "finalize_task", "Enter or resume a task's finalization workflow"),
		newSubmitCmd(),
		newReviewCmd(),
		newAdvanceCmd(),
		newSubtaskCmd(),
		newNextTaskCmd(),
	)

	return root
}

// printResult renders a dispatch.Result to stdout/stderr the way the
// teacher's agent/task commands print their outcome: the next prompt (if
// any) to stdout for the agent to consume, everything else to stderr as
// operator-facing status.
func printResult(cmd *cobra.Command, r *dispatch.Result) error {
	cmd.PrintErrf("[%s] %s\n", r.Status, r.Message)
	if r.NextPrompt != "" {
		cmd.Println(r.NextPrompt)
	}
	if r.Status == dispatch.StatusError {
		return fmt.Errorf("%s", r.Message)
	}
	return nil
}
