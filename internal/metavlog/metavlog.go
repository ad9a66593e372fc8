// Package metavlog provides the structured, leveled logger the CLI uses,
// wrapping logrus: fields for context instead of interpolated strings, and
// a text formatter tuned for a terminal.
package metavlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a configured *logrus.Logger with the field names metav's
// pipeline stages use consistently: "stage", "file", "module".
type Logger struct {
	*logrus.Logger
}

// New returns a Logger writing to stderr with a human-readable text
// formatter; level defaults to Info unless verbose is set.
func New(verbose bool) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   false,
		DisableColors:   false,
		TimestampFormat: "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return &Logger{l}
}

// Stage returns an entry pre-tagged with the pipeline stage name, used
// for a single cohesive log line per preprocessor/lexer/parser/driver
// event rather than ad hoc fmt.Printf calls scattered through the core.
func (l *Logger) Stage(name string) *logrus.Entry {
	return l.WithField("stage", name)
}
