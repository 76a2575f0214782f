package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

const (
	logLevelFlag  = "log-level"
	logFormatFlag = "log-format"
)

func registerLoggingFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(logLevelFlag, "warn", "set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().String(logFormatFlag, "text", "set the log format (text, json)")
}

// newLogger builds the logger selected by the logging flags. Logs always go to
// w, which is stderr in practice, so reports on stdout stay clean.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	level, err := logLevel(cmd.Flag(logLevelFlag).Value.String())
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format := cmd.Flag(logFormatFlag).Value.String(); format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}

func logLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("invalid log level: %s", s)
}
