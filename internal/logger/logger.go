// Package logger configures the process-wide logrus logger used by crudkit.
package logger

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// Init configures the standard logrus logger to write to w. The CLI passes
// stderr so that command output on stdout stays machine readable.
func Init(w io.Writer, cfg Config) {
	log.SetOutput(w)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{
			DisableTimestamp:       true,
			DisableLevelTruncation: true,
		})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Command returns an entry scoped to a CLI subcommand.
func Command(name string) *log.Entry {
	return log.WithField("command", name)
}
