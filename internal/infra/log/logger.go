package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"addrstore/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Params defines the parameters required for the logger
type Params struct {
	fx.In

	Config *config.Config
	// Writer overrides the configured output stream
	Writer io.Writer `name:"logWriter" optional:"true"`
}

// New creates and initializes slog.Logger
func New(params Params) (*slog.Logger, error) {
	logCfg := params.Config.Env.Log

	level, err := parseLogLevel(logCfg.Level)
	if err != nil {
		return nil, err
	}
	if params.Config.Env.Debug {
		level = slog.LevelDebug
	}

	out := params.Writer
	if out == nil {
		out, err = outputStream(logCfg.Output)
		if err != nil {
			return nil, err
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var logger *slog.Logger
	if logCfg.Pretty {
		logger = slog.New(slog.NewTextHandler(out, opts))
	} else {
		logger = slog.New(slog.NewJSONHandler(out, opts))
	}

	return logger.With(slog.String("service", params.Config.Env.ServiceName)), nil
}

// outputStream keeps stdout free for command output unless asked otherwise.
func outputStream(name string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return nil, errors.Errorf("unknown log output: %s", name)
	}
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
	}
}
