// Package logger builds the application's zap logger. Production output
// is JSON with ISO8601 timestamps and a service field; development
// sessions get the console encoder so local logs stay readable.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the encoder, level and identity fields for New.
type Options struct {
	Level       string
	Development bool
	Service     string
}

// New builds the logger and installs it as the zap global so packages
// without an injected logger still log through the same pipeline.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if opts.Service != "" {
		log = log.With(zap.String("service", opts.Service))
	}
	zap.ReplaceGlobals(log)
	return log, nil
}
