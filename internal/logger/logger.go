package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger writing to out. A nil out means stdout.
func Init(level LogLevel, isService bool, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    out != os.Stdout,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(level)
}

// ParseLevel maps a configured level name to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	switch name {
	case "debug":
		return DebugLevel, true
	case "info", "":
		return InfoLevel, true
	case "warning", "warn":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	default:
		return InfoLevel, false
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid() && os.Getenv("TERM") == ""
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// scoped is a Logger bound to a child zerolog logger carrying fixed fields.
type scoped struct {
	zl zerolog.Logger
}

// Default returns a Logger backed by the global logger.
func Default() Logger {
	return scoped{zl: log}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return scoped{zl: zerolog.Nop()}
}

// New returns a Logger writing JSON lines to w, mostly for tests.
func New(w io.Writer) Logger {
	return scoped{zl: zerolog.New(w).With().Timestamp().Logger()}
}

func (s scoped) Debug() *LogEvent { return &LogEvent{s.zl.Debug()} }
func (s scoped) Info() *LogEvent  { return &LogEvent{s.zl.Info()} }
func (s scoped) Warn() *LogEvent  { return &LogEvent{s.zl.Warn()} }
func (s scoped) Error() *LogEvent { return &LogEvent{s.zl.Error()} }

func (s scoped) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{s.zl.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

func (s scoped) With(key, value string) Logger {
	return scoped{zl: s.zl.With().Str(key, value).Logger()}
}
