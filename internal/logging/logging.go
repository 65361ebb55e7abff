// Package logging builds the zap logger shared by the server and MCP
// entry points. Grounded on weizsw-fusionn-muse's pkg/logger package
// (console encoder, capital level, hidden stacktrace/caller).
package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-encoded logger. dev enables debug-level logging
// and colorized levels; otherwise logging is capped at info level.
func New(dev bool) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		MessageKey:    "msg",
		StacktraceKey: "",
		EncodeTime:    timeEncoder,
	}

	level := zapcore.InfoLevel
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if dev {
		level = zapcore.DebugLevel
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)
	return zap.New(core)
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05"))
}
