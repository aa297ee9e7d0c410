// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up the global logger. Level is one of zerolog's level names
// ("debug", "info", ...); unknown values fall back to info. When json is
// false the console writer is used, which is what the CLI wants; json is
// for running under a collector.
func Init(level string, json bool) {
	lv, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lv == zerolog.NoLevel {
		lv = zerolog.InfoLevel
	}

	// All timestamps in UTC so logs from different hosts line up.
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	if json {
		log.Logger = zerolog.New(os.Stderr).Level(lv).With().Timestamp().Logger()
		return
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}
	log.Logger = zerolog.New(console).Level(lv).With().Timestamp().Logger()
}

// WithComponent returns a logger scoped to one component, so every line
// carries where it came from.
func WithComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
