package pipeline

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// newLogger builds the default pipeline logger. Debug logging (one line per
// flush handoff) is enabled with PIPELINE_DEBUG=1.
func newLogger() *logrus.Logger {
	l := logrus.New()
	if debug, err := strconv.ParseBool(os.Getenv("PIPELINE_DEBUG")); err == nil && debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}
