package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// DebugEnabled returns true if debug mode is enabled via OW_DEBUG environment variable
func DebugEnabled() bool {
	return os.Getenv("OW_DEBUG") != ""
}

// Debugf logs a formatted debug message only if debug mode is enabled
func Debugf(format string, args ...interface{}) {
	if DebugEnabled() {
		log.Debug().Msgf(strings.TrimSuffix(format, "\n"), args...)
	}
}
