package benchmark

import (
	"context"
	"io"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"github.com/google/uuid"
)

// Runner starts write benchmarks through the write collaborator, one
// session per call.
type Runner struct {
	executor collaborator.Executor
	commands collaborator.Commands
	now      func() time.Time
	log      logger.Logger
}

func NewRunner(executor collaborator.Executor, commands collaborator.Commands, log logger.Logger) *Runner {
	return &Runner{
		executor: executor,
		commands: commands,
		now:      time.Now,
		log:      log,
	}
}

// Start spawns the benchmark for node and returns without waiting. Samples
// go to sink from the session's own goroutine. When the collaborator cannot
// be started the returned session is already Failed and the error is
// returned as well.
func (r *Runner) Start(ctx context.Context, node string, sink Sink) (*Session, error) {
	errFactory := errors.New()

	session := newSession(uuid.NewString(), node, r.now(), r.log)
	cmd := r.commands.WriteBenchmark(node)

	proc, err := r.executor.Start(ctx, cmd)
	if err != nil {
		spawnErr := errFactory.Wrap(ErrBenchmarkSpawn, err)
		r.log.Error().Err(err).
			Str("device", node).
			Str("session", session.ID()).
			Str("command", cmd.String()).
			Msg("Failed to start benchmark")
		session.finish(Failed, spawnErr, r.now())
		return session, spawnErr
	}
	session.attach(proc)

	r.log.Info().
		Str("device", node).
		Str("session", session.ID()).
		Str("command", cmd.String()).
		Msg("Benchmark started")

	// A cancelled run context stops the session like an operator would.
	stop := context.AfterFunc(ctx, func() { _ = session.Terminate() })

	go func() {
		defer stop()
		r.stream(session, proc, sink)
	}()
	return session, nil
}

// stream parses progress lines until the output ends, then reaps the
// process and settles the session's final state.
func (r *Runner) stream(s *Session, proc collaborator.Process, sink Sink) {
	errFactory := errors.New()
	log := r.log.With("device", s.Node()).With("session", s.ID())

	var seq uint64
	skipped := 0
	lines := proc.Lines()

	var readErr error
	for {
		line, err := lines.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			readErr = err
			log.Warn().Err(err).Msg("Benchmark output unreadable, terminating")
			_ = proc.Terminate()
			break
		}

		if !IsCandidate(line) {
			continue
		}
		speed, ok := ExtractSpeed(line)
		if !ok {
			skipped++
			continue
		}

		seq++
		s.sampled()
		if sink != nil {
			sink(Sample{
				Device:  s.Node(),
				Session: s.ID(),
				Seq:     seq,
				At:      r.now(),
				Speed:   speed,
			})
		}
	}

	code, waitErr := proc.Wait()
	reason := failureReason(proc.Stderr())
	exit := collaborator.ExitError{Code: code, Stderr: reason}

	var state State
	var failure error
	switch {
	case waitErr != nil:
		state, failure = Failed, errFactory.Wrap(ErrBenchmarkRuntime, waitErr)
	case readErr != nil:
		state, failure = Failed, errFactory.Wrap(ErrBenchmarkRuntime, readErr)
	case code == 0:
		state = Completed
	case s.State() == Stopping:
		state, failure = Failed, errFactory.WithData(ErrTerminated, exit)
	default:
		state, failure = Failed, errFactory.WithData(ErrBenchmarkRuntime, exit)
	}

	s.finish(state, failure, r.now())

	event := log.Info()
	if state == Failed && !errors.HasCode(failure, ErrTerminated) {
		event = log.Warn()
		event.Err(failure)
	}
	event.
		Str("state", state.String()).
		Int("exit_code", code).
		Int("samples", int(seq)).
		Int("skipped", skipped).
		Dur("duration", s.Duration()).
		Msg("Benchmark finished")
}
