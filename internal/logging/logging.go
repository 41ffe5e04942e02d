// Package logging builds the shared log output for lens components.
//
// Each component owns a *log.Logger with a bracketed prefix ("[sync] ",
// "[service] ", ...). They all write to one Output, which is stderr, a
// rotating log file, or both.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the log output.
type Options struct {
	// File enables a rotating log file at this path.
	File string `mapstructure:"file"`

	// Level is "info" (default) or "debug".
	Level string `mapstructure:"level"`

	// Stderr keeps writing to stderr when File is set.
	Stderr bool `mapstructure:"stderr"`

	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// Output is the destination shared by all component loggers.
type Output struct {
	w     io.Writer
	file  *lumberjack.Logger
	debug bool
}

// Open builds the output described by opts.
func Open(opts Options) (*Output, error) {
	debug, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := &Output{w: os.Stderr, debug: debug}
	if opts.File == "" {
		return out, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	out.file = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	out.w = out.file
	if opts.Stderr {
		out.w = io.MultiWriter(out.file, os.Stderr)
	}
	return out, nil
}

// Discard returns an Output that drops everything.
func Discard() *Output {
	return &Output{w: io.Discard}
}

func parseLevel(level string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return false, nil
	case "debug":
		return true, nil
	default:
		return false, fmt.Errorf("unknown log level %q (want info or debug)", level)
	}
}

// Logger returns a logger for component, e.g. Logger("sync") prefixes lines
// with "[sync] ".
func (o *Output) Logger(component string) *log.Logger {
	return log.New(o.w, "["+component+"] ", log.LstdFlags)
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer {
	return o.w
}

// Debug reports whether debug logging is enabled.
func (o *Output) Debug() bool {
	return o.debug
}

// Close flushes and closes the log file, if any.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}
