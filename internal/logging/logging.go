// Package logging configures the process logger.
package logging

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/conn-castle/datalad-installer/internal/messages"
)

// ParseLevel accepts a level name or a numeric level on the 10 (debug)
// through 50 (critical) scale. Numbers between steps round down.
func ParseLevel(raw string) (log.Level, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "critical", "fatal":
		return log.FatalLevel, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf(messages.LoggingInvalidLevelFmt, raw)
	}
	switch {
	case n >= 50:
		return log.FatalLevel, nil
	case n >= 40:
		return log.ErrorLevel, nil
	case n >= 30:
		return log.WarnLevel, nil
	case n >= 20:
		return log.InfoLevel, nil
	default:
		return log.DebugLevel, nil
	}
}

// New returns a logger writing to w at level.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "datalad-installer",
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})
}
