package collaborator

import (
	"strconv"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
)

const (
	ErrStartFailed  = errors.ErrorCode("collaborator_start_failed")
	ErrExitStatus   = errors.ErrorCode("collaborator_exit_status")
	ErrSignalFailed = errors.ErrorCode("collaborator_signal_failed")
	ErrEmptyCommand = errors.ErrorCode("collaborator_empty_command")
	ErrStreamFailed = errors.ErrorCode("collaborator_stream_failed")
)

func init() {
	errors.RegisterMessage(ErrStartFailed, "Failed to start collaborator")
	errors.RegisterMessage(ErrExitStatus, "Collaborator exited with an error")
	errors.RegisterMessage(ErrSignalFailed, "Failed to signal collaborator")
	errors.RegisterMessage(ErrEmptyCommand, "Empty collaborator command")
	errors.RegisterMessage(ErrStreamFailed, "Failed to read collaborator output")
}

// ExitError is the data attached to ErrExitStatus errors.
type ExitError struct {
	Code   int
	Stderr string
}

func (e ExitError) String() string {
	if e.Stderr == "" {
		return "exit status " + strconv.Itoa(e.Code)
	}
	return "exit status " + strconv.Itoa(e.Code) + ": " + e.Stderr
}

// StderrOf returns the collaborator stderr carried by err, if any.
func StderrOf(err error) string {
	var coded errors.Error
	for err != nil {
		if errors.As(err, &coded) {
			if exit, ok := coded.GetData().(ExitError); ok {
				return exit.Stderr
			}
			err = coded.Unwrap()
			continue
		}
		return ""
	}
	return ""
}
