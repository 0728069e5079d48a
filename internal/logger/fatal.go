package logger

import (
	"log/slog"
	"os"
)

// FatalWithLogger logs at error level and exits, used only before the
// gateway is serving so there is nothing to drain
func FatalWithLogger(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
