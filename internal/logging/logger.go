package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/swapd/internal/config"
)

// NewLogger creates a structured zerolog.Logger with observability context
// fields from the config. When cfg.LogFile is set, records are written to
// stdout and appended to that file; the returned closer releases the file.
func NewLogger(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	closer := io.Closer(nopCloser{})

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(os.Stdout, f)
		closer = f
	}

	return New(out, cfg), closer, nil
}

// New builds the logger on top of out.
func New(out io.Writer, cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(out).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.DeployTarget != "" {
		ctx = ctx.Str("target", cfg.DeployTarget)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
