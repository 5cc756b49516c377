package logger

import "github.com/Gimel12/nvme-tool-ubuntu/internal/errors"

// Logger defines the interface for logging operations. Components take a
// Logger so tests can hand them Nop().
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	With(key, value string) Logger
}
