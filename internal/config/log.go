package config

import (
	"io"
	log "log/slog"
	"time"

	"github.com/lmittmann/tint"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// NewLogger returns a colored slog logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	return log.New(tint.NewHandler(w, &tint.Options{
		Level:      logLevelMap[level],
		TimeFormat: time.TimeOnly,
	}))
}
