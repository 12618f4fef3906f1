// Package obslog builds the *zap.Logger every other package in this module
// logs through. The teacher (gorustyt-gonavmesh) declares go.uber.org/zap
// and the lumberjack rotating writer in its go.mod but, being a pure
// algorithm library, never constructs either — this package is where that
// stack actually gets wired up, the way a host service built on top of the
// teacher's navmesh core would.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the logger obslog builds. Zero value is a sane default:
// JSON-encoded, info level, written to stderr with no file rotation.
type Config struct {
	// Level is the minimum enabled level ("debug", "info", "warn", "error").
	// Empty means "info".
	Level string
	// FilePath, if non-empty, routes output through a rotating lumberjack
	// writer instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger from cfg. Errors constructing the level are
// treated as "info" rather than failing the caller — a malformed log level
// is not worth aborting a sculpt session over.
func New(cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		_ = level.Set(cfg.Level)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer
	if cfg.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
		})
	} else {
		sink = zapcore.Lock(zapcore.AddSync(os.Stderr))
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, level)
	return zap.New(core)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
