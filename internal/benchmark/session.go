package benchmark

import (
	"sync"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
)

// State of a benchmark session. Completed and Failed are terminal.
type State int

const (
	Running State = iota
	Stopping
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// Session is one device's running benchmark. The process handle belongs to
// the session; other components only read its state or call Terminate.
type Session struct {
	id      string
	node    string
	started time.Time
	proc    collaborator.Process
	log     logger.Logger

	mu      sync.Mutex
	state   State
	err     error
	samples int
	ended   time.Time

	done chan struct{}
}

func newSession(id, node string, started time.Time, log logger.Logger) *Session {
	return &Session{
		id:      id,
		node:    node,
		started: started,
		log:     log,
		state:   Running,
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Node() string {
	return s.node
}

func (s *Session) Started() time.Time {
	return s.started
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the failure reason of a Failed session, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Reason is the collaborator's diagnostic text for a failed session,
// falling back to the error message.
func (s *Session) Reason() string {
	err := s.Err()
	if err == nil {
		return ""
	}
	if stderr := collaborator.StderrOf(err); stderr != "" {
		return stderr
	}
	return err.Error()
}

// Samples is the number of samples delivered so far.
func (s *Session) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Duration is the session's run time, up to now while it is live.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended.IsZero() {
		return time.Since(s.started)
	}
	return s.ended.Sub(s.started)
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Terminate asks the collaborator to stop and returns at once. The session
// moves to Stopping; its final state is set when the process is reaped.
// Terminate on a session that is not Running does nothing.
func (s *Session) Terminate() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return nil
	}
	s.state = Stopping
	proc := s.proc
	s.mu.Unlock()

	s.log.Info().Str("device", s.node).Str("session", s.id).Msg("Terminating benchmark")

	if proc == nil {
		return nil
	}
	if err := proc.Terminate(); err != nil {
		s.log.Error().Err(err).Str("device", s.node).Str("session", s.id).Msg("Failed to signal benchmark")
		return err
	}
	return nil
}

func (s *Session) attach(proc collaborator.Process) {
	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()
}

func (s *Session) sampled() {
	s.mu.Lock()
	s.samples++
	s.mu.Unlock()
}

// finish records the terminal state. A session stopped by Terminate that
// does not exit cleanly ends Failed with terminated.
func (s *Session) finish(state State, err error, at time.Time) {
	s.mu.Lock()
	s.state = state
	s.err = err
	s.ended = at
	s.mu.Unlock()
	close(s.done)
}
