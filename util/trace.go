package util

import (
	"log/slog"
	"time"
)

// Trace logs how long a step took. Usage: defer util.Trace("import")()
func Trace(msg string) func() {
	start := time.Now()
	slog.Debug("start", "step", msg)
	return func() {
		slog.Info("finished", "step", msg, "elapsed", time.Since(start).Round(time.Millisecond))
	}
}
