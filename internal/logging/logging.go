// Package logging builds the zerolog loggers used across the service.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a component-tagged logger writing JSON lines to stderr.
// With pretty set it switches to the human-readable console writer for
// local runs.
func New(component string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
