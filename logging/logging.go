// Package logging configures the process-wide slog logger and exposes the
// log-level CLI flag shared by every DXLander command.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// ParseLogLevel maps a level name to its slog.Level. Unknown names fall back
// to info; "silent" and "none" map to a level above every emitted record.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "none":
		return slog.Level(1000)
	default:
		return slog.LevelInfo
	}
}

// ValidLogLevels lists the level names accepted by the --log-level flag.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warning", "error", "silent"}
}

// InitLogging installs a text handler on stderr at the given level as the
// default slog logger.
func InitLogging(logLevel string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLogLevel(logLevel),
	})
	slog.SetDefault(slog.New(handler))
}

// LogLevel is the pflag-compatible value backing the --log-level flag. It
// records whether the flag was given so the CLI can tell an explicit level
// apart from the configured default.
var LogLevel = &logLevelFlag{value: "silent", set: false}

type logLevelFlag struct {
	value string
	set   bool
}

func (l *logLevelFlag) Set(value string) error {
	if !slices.Contains(ValidLogLevels(), value) {
		return fmt.Errorf("invalid value '%s'. Allowed values: %s",
			value, strings.Join(ValidLogLevels(), ", "))
	}
	l.value = value
	l.set = true
	return nil
}

func (l *logLevelFlag) String() string {
	return l.value
}

func (l *logLevelFlag) Type() string {
	return fmt.Sprintf("one of [%s]", strings.Join(ValidLogLevels(), "|"))
}

// IsSet reports whether the flag was explicitly set on the command line.
func (l *logLevelFlag) IsSet() bool {
	return l.set
}
