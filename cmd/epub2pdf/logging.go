package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log formats accepted by --log-format.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// newLogger builds the stderr logger: info by default, debug with
// --verbose, errors only with --quiet. fallbackFormat comes from the
// environment and applies when --log-format is not set.
func newLogger(w io.Writer, f commonFlags, fallbackFormat string) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch {
	case f.quiet:
		level = slog.LevelError
	case f.verbose:
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	format := f.logFormat
	if format == "" {
		format = fallbackFormat
	}
	switch strings.ToLower(format) {
	case "", logFormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case logFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: %q (want text or json)", ErrInvalidLogFormat, format)
	}
}
