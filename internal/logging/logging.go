package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/lumberjack/v2"
	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger = zerolog.Nop()

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	// Output is the console writer; defaults to os.Stdout.
	Output io.Writer
	// File, when set, receives a copy of every line.
	File  string
	RunID string
	Host  string
}

// ParseLevel converts a level name, falling back to info.
func ParseLevel(s string) Level {
	switch Level(s) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
		return Level(s)
	default:
		return InfoLevel
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init builds the logger, installs it as Logger and returns it together
// with a closer for the log file.
func Init(cfg Config) (zerolog.Logger, io.Closer, error) {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	writers := []io.Writer{levelWriter{w: format(output, cfg.JSONOutput), min: cfg.Level.zerolog()}}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := ensureWritable(cfg.File); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			Compress:   true,
		}
		closer = file
		writers = append(writers, levelWriter{w: format(file, cfg.JSONOutput), min: zerolog.DebugLevel})
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(zerolog.DebugLevel).With().Timestamp()
	if cfg.RunID != "" {
		ctx = ctx.Str("run_id", cfg.RunID)
	}
	if cfg.Host != "" {
		ctx = ctx.Str("host", cfg.Host)
	}
	Logger = ctx.Logger()
	return Logger, closer, nil
}

// WithPhase creates a child logger with phase field
func WithPhase(l zerolog.Logger, phase string) zerolog.Logger {
	return l.With().Str("phase", phase).Logger()
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

func format(w io.Writer, jsonOutput bool) io.Writer {
	if jsonOutput {
		return w
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
}

func ensureWritable(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	// #nosec G304 - log path comes from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	return f.Close()
}

// levelWriter drops events below min.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (l levelWriter) Write(p []byte) (int, error) {
	return l.w.Write(p)
}

func (l levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < l.min {
		return len(p), nil
	}
	return l.w.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
