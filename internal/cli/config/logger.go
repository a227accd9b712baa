package config

import (
	"io"
	"log/slog"
	"runtime"

	"github.com/lmittmann/tint"
)

// NewLogger builds the CLI logger writing to w. Terminals get a colored
// handler, anything else plain logfmt text. Verbose enables debug output;
// otherwise only warnings and errors are shown.
func NewLogger(w io.Writer, verbose, isTTY bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	if isTTY {
		return slog.New(tint.NewHandler(w, &tint.Options{
			NoColor:    runtime.GOOS == "windows",
			AddSource:  verbose,
			Level:      level,
			TimeFormat: "15:04:05",
		}))
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
