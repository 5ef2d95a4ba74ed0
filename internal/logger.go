package internal

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// NewLogger builds the process logger: JSON with UTC timestamps in prod,
// text elsewhere, with source locations at debug level. Unknown levels fall
// back to info.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	var lvl slog.Level
	badLevel := lvl.UnmarshalText([]byte(strings.TrimSpace(level))) != nil

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if env == "prod" {
		opts.ReplaceAttr = utcTime
		h = slog.NewJSONHandler(w, opts)
	} else {
		opts.AddSource = lvl <= slog.LevelDebug
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h).With(slog.String("service", "bizznex"))
	if badLevel {
		logger.Warn("unknown log level, using info", slog.String("level", level))
	}
	return logger
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.TimeValue(a.Value.Time().UTC().Truncate(time.Microsecond))
	}
	return a
}
