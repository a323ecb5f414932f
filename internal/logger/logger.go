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
	// Global logger instance. Component loggers derive from it at package init,
	// so it is usable before Initialize runs.
	Logger = newLogger(os.Stdout)
)

func newLogger(out io.Writer) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    false,
	}
	return zerolog.New(consoleWriter).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Initialize sets the global log level and, when logFile is non-empty, mirrors
// output into that file.
func Initialize(logLevel string, logFile string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if logFile != "" {
		file, err := FileWriter(logFile)
		if err != nil {
			Logger.Error().Err(err).Str("path", logFile).Msg("Failed to open log file, logging to console only")
		} else {
			consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}
			Logger = zerolog.New(zerolog.MultiLevelWriter(consoleWriter, file)).
				With().
				Timestamp().
				Caller().
				Logger()
		}
	}

	zerolog.SetGlobalLevel(ParseLevel(logLevel))

	// Replace standard log with zerolog
	log.Logger = Logger
}

// ParseLevel maps a LOG_LEVEL value onto a zerolog level, defaulting to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering
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
