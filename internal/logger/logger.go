// Package logger sets up structured diagnostics for stages.  Diagnostics
// always go to stderr (or another writer given explicitly), never to stdout
// which carries the event stream.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Standard field keys.
const (
	FieldStage = "stage"
	FieldRunID = "run_id"
	FieldLine  = "line"
	FieldKind  = "kind"
)

// Config contains logging configuration.
type Config struct {
	Level   string `yaml:"level" mapstructure:"level"`
	Format  string `yaml:"format" mapstructure:"format"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil || c.Level == "" {
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error, fatal (got: %s)", c.Level)
	}
	switch c.Format {
	case FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("log.format must be one of [console json] (got: %s)", c.Format)
	}
}

// New creates a logger writing to stderr.
func New(cfg Config) zerolog.Logger {
	var out io.Writer = os.Stderr
	color := !cfg.NoColor && isatty.IsTerminal(os.Stderr.Fd())
	if color {
		out = colorable.NewColorableStderr()
	}
	return NewWithWriter(cfg, out, color)
}

// NewWithWriter creates a logger writing to w.  color only applies to the
// console format.
func NewWithWriter(cfg Config, w io.Writer, color bool) zerolog.Logger {
	cfg.ApplyDefaults()
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if strings.ToLower(cfg.Format) == FormatJSON {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    !color,
	}).Level(level).With().Timestamp().Logger()
}

// ForStage returns l tagged with the stage name and run id.
func ForStage(l zerolog.Logger, stage, runID string) zerolog.Logger {
	zc := l.With().Str(FieldStage, stage)
	if runID != "" {
		zc = zc.Str(FieldRunID, runID)
	}
	return zc.Logger()
}
