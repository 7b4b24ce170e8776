package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"acceptance/config"
)

// New builds the run logger: one core with the encoder named by cfg.Format,
// the level named by cfg.Level and the sink named by cfg.Output. An unknown
// level falls back to info; an unknown format is an error.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	enc, err := encoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	sink, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(enc, sink, Level(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}

// Level parses a configured level name, defaulting to info.
func Level(name string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoder(format string) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return zapcore.NewJSONEncoder(ec), nil
	case "", "console":
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.ConsoleSeparator = "  "
		return zapcore.NewConsoleEncoder(ec), nil
	}
	return nil, fmt.Errorf("log format %q: want console or json", format)
}

// openSink resolves stderr, stdout or a file path. Files are appended to.
func openSink(output string) (zapcore.WriteSyncer, error) {
	switch out := strings.TrimSpace(output); strings.ToLower(out) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	default:
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, fmt.Errorf("prepare log directory: %w", err)
		}
		f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return zapcore.Lock(f), nil
	}
}
