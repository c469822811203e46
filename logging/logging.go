// Package logging builds the zerolog loggers of the toolkit binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config describes the logger of a binary.
type Config struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=console json"`
	Caller bool   `mapstructure:"caller"`
}

func (c *Config) ApplyDefault() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// ParseLevel parses a level case-insensitively, an empty level means info.
func ParseLevel(raw string) (zerolog.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %s: %w", raw, err)
	}
	return level, nil
}

// New creates a logger writing on stderr.
func New(cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing on out, either as JSON lines or for a terminal.
func NewWithWriter(out io.Writer, cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var writer io.Writer
	switch cfg.Format {
	case "", FormatConsole:
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case FormatJSON:
		writer = out
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %s", cfg.Format)
	}

	ctx := zerolog.New(writer).
		Level(level).
		With().
		Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}
