package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Global logger instance
	Logger zerolog.Logger
)

type options struct {
	out     io.Writer
	json    bool
	logFile string
}

// Option customizes Initialize.
type Option func(*options)

// WithJSON switches the console writer for line-delimited JSON, for log shippers.
func WithJSON() Option {
	return func(o *options) { o.json = true }
}

// WithFile tees every line into path as JSON.
func WithFile(path string) Option {
	return func(o *options) { o.logFile = path }
}

// WithOutput replaces stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// Initialize sets up the global logger with appropriate configuration
func Initialize(logLevel string, opts ...Option) {
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        o.out,
		TimeFormat: "2006-01-02 15:04:05",
	}
	if o.json {
		output = o.out
	}

	if o.logFile != "" {
		file, err := FileWriter(o.logFile)
		if err != nil {
			log.Error().Err(err).Str("path", o.logFile).Msg("Failed to open log file")
		} else {
			output = zerolog.MultiLevelWriter(output, file)
		}
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	zerolog.SetGlobalLevel(ParseLevel(logLevel))

	// Replace standard log with zerolog
	log.Logger = Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering.
// Call it after Initialize; loggers taken before that discard everything.
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// FileWriter returns a writer to a log file for optional use alongside console logging
func FileWriter(path string) (io.Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return file, nil
}
