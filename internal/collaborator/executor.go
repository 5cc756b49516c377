package collaborator

import "context"

// Result is the captured output of a command that ran to completion.
type Result struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Executor abstracts process execution so the parsing components can be
// tested with synthetic output.
type Executor interface {
	// Run executes cmd to completion. A non-zero exit or a failure to
	// start returns an error; the Result still carries whatever output
	// was captured.
	Run(ctx context.Context, cmd Command) (Result, error)

	// Start launches a long-lived cmd and returns immediately.
	Start(ctx context.Context, cmd Command) (Process, error)
}

// Process is a running collaborator owned by exactly one caller.
type Process interface {
	// Lines streams stdout, plus stderr for MergeStderr commands, as it is
	// produced. It must be drained; an unread stream stalls the process.
	Lines() LineSource

	// Wait blocks until the process is reaped and returns its exit
	// code. Signalled processes report -1.
	Wait() (int, error)

	// Stderr returns the tail of the error stream. Complete after Wait.
	Stderr() string

	// Terminate asks the process group to exit and returns without
	// waiting. Calls after the first are no-ops.
	Terminate() error
}
