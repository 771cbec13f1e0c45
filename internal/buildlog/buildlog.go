// Package buildlog constructs the process-wide structured logger used
// throughout the driver and its components. There is no package-level
// singleton: each driver run owns its own *log.Logger, threaded through
// as a constructor argument the way the teacher's review package does.
package buildlog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures the logger's verbosity and destination.
type Options struct {
	Verbose bool
	Output  io.Writer // defaults to os.Stderr when nil
}

// New constructs a logger for one driver run.
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return logger
}

// Discard returns a logger that drops everything, for tests and dry runs
// that don't want log noise.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
