// Package config resolves the kernel's configuration. spec.md §6 is
// explicit that the workspace root path is the only required
// configuration and that the kernel has no environment-variable
// coupling; this package still carries an optional on-disk config file
// for ambient concerns (task provider directory, log verbosity) the way
// the teacher's cli/internal/sow.LoadUserConfig does — read-file-or-
// default, never required, never environment-coupled.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileName is the optional config file's name, resolved relative to the
// workspace root.
const fileName = ".taskforge.yaml"

// Config holds everything the kernel needs beyond the workspace root
// itself.
type Config struct {
	// WorkspaceRoot is the only required setting (spec.md §6): the
	// directory under which tool_state.json/task.json/scratchpad.md live,
	// one subdirectory per task_id.
	WorkspaceRoot string `yaml:"-"`

	// TaskDescriptorDir points the filesystem task provider (C5's
	// get_next_task) at its markdown descriptor directory. Defaults to
	// "<workspace_root>/tasks" when unset.
	TaskDescriptorDir string `yaml:"task_descriptor_dir"`

	// Verbose and Quiet mirror the teacher's CLI logging flags, carried
	// through to klog.New.
	Verbose bool `yaml:"verbose"`
	Quiet   bool `yaml:"quiet"`
}

// Load resolves configuration for a workspace root: reads
// <workspaceRoot>/.taskforge.yaml if present, applies defaults for
// anything it leaves unset, and always returns a usable Config even when
// the file is absent (zero-config experience, per the teacher's
// LoadUserConfig).
func Load(workspaceRoot string) (*Config, error) {
	cfg := &Config{WorkspaceRoot: workspaceRoot}

	path := filepath.Join(workspaceRoot, fileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// no config file: defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.WorkspaceRoot = workspaceRoot // yaml.Unmarshal never touches this (yaml:"-"), but guard explicitly
		}
	}

	if cfg.TaskDescriptorDir == "" {
		cfg.TaskDescriptorDir = filepath.Join(workspaceRoot, "tasks")
	}

	return cfg, nil
}
