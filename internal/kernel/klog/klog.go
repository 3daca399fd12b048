// Package klog provides the kernel's structured logger: a thin wrapper
// over github.com/charmbracelet/log configured the way the teacher's
// dependency tree pulls it in (transitively, via the terminal-UI stack)
// but used directly here as the kernel's own logging library, since
// spec.md §1 carries an ambient logging concern even though it never
// specifies one — the pack's own convention for structured logging is
// charmbracelet/log (see other_examples' pipeline-orchestrator.go, which
// attaches a *log.Logger to its orchestrator the same way).
package klog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w with level configured by verbose/quiet:
// verbose enables debug output, quiet suppresses everything but warnings
// and above. Neither set, the default level is info.
func New(w io.Writer, verbose, quiet bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})

	switch {
	case verbose:
		logger.SetLevel(log.DebugLevel)
	case quiet:
		logger.SetLevel(log.WarnLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	return logger
}

// Default returns a logger writing to stderr at info level, for callers
// that don't need verbose/quiet wiring (e.g. package-level fallbacks).
func Default() *log.Logger {
	return New(os.Stderr, false, false)
}
