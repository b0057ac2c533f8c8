package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
)

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// debugAdapter exposes a slog.Logger through the library's Printf
// logging interface.
type debugAdapter struct {
	*slog.Logger
}

func (log *debugAdapter) Printf(format string, args ...any) {
	log.Logger.Debug(fmt.Sprintf(format, args...))
}
