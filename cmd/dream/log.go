package main

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 28
)

// newLogger returns a JSON logger writing to a rotated file at path, or a
// console logger writing to console when path is empty. With neither, the
// logger discards everything. The returned func closes the file.
func newLogger(path, level string, console io.Writer) (*zap.Logger, func() error, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	nop := func() error { return nil }

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	switch {
	case path != "":
		w := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
			Compress:   true,
			LocalTime:  true,
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), lvl)
		return zap.New(core, zap.AddCaller()), w.Close, nil
	case console != nil:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), lvl)
		return zap.New(core), nop, nil
	default:
		return zap.NewNop(), nop, nil
	}
}
