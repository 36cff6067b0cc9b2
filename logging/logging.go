// File: logging/logging.go
// Package logging builds the process logger.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package logging constructs the zap logger from daemon configuration:
// console or JSON encoding, stdout/stderr/file outputs, optional
// rotation. The caller should defer logger.Sync().
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	Outputs     []string `mapstructure:"outputs"`
	Development bool     `mapstructure:"development"`
	Rotation    Rotation `mapstructure:"rotation"`
}

// Rotation controls file output rotation.
type Rotation struct {
	Enable     bool `mapstructure:"enable"`
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Setup builds a zap.Logger, installs it globally and redirects the
// stdlib log package.
func Setup(c Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch strings.ToLower(c.Level) {
	case "debug":
		level.SetLevel(zap.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zap.WarnLevel)
	case "error":
		level.SetLevel(zap.ErrorLevel)
	default:
		level.SetLevel(zap.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	if c.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	var encoder zapcore.Encoder
	if strings.ToLower(c.Format) == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	outputs := c.Outputs
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	var cores []zapcore.Core
	for _, out := range outputs {
		cores = append(cores, zapcore.NewCore(encoder, sink(out, c), level))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
	if c.Development {
		opts = append(opts, zap.Development())
	}

	logger := zap.New(zapcore.NewTee(cores...), opts...)
	zap.ReplaceGlobals(logger)
	if _, err := zap.RedirectStdLogAt(logger, zap.InfoLevel); err != nil {
		return nil, err
	}
	return logger, nil
}

func sink(out string, c Config) zapcore.WriteSyncer {
	switch strings.ToLower(out) {
	case "stdout":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	}
	if c.Rotation.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   out,
			MaxSize:    defaultInt(c.Rotation.MaxSizeMB, 10),
			MaxBackups: defaultInt(c.Rotation.MaxBackups, 3),
			MaxAge:     defaultInt(c.Rotation.MaxAgeDays, 7),
			Compress:   c.Rotation.Compress,
		})
	}
	f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(f)
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
