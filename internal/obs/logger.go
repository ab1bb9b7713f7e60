// Package obs is the process-wide observability surface: a zerolog logger
// and the prometheus metrics the pipeline's stages report into. Grounded on
// eternnoir-gollmscribe's zerolog-based CLI logging, since the teacher
// (alnah-go-transcript) itself only writes ad hoc fmt.Fprintln(stderr, ...)
// warnings.
package obs

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger, configured by Init. The
// chunk planner, which predates this package, keeps its own WarnFunc
// injection point instead, so it stays unit-testable without a real sink.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures Logger's level and output writer. Call once from main
// before any component logs.
func Init(level string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	Logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
