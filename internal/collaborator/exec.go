package collaborator

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"golang.org/x/sys/unix"
)

// OSExecutor runs collaborators as real processes.
type OSExecutor struct {
	// GracePeriod is how long a terminated process group gets between
	// SIGTERM and SIGKILL. Zero sends SIGTERM only.
	GracePeriod time.Duration
}

// NewOSExecutor returns an executor escalating to SIGKILL after grace.
func NewOSExecutor(grace time.Duration) *OSExecutor {
	return &OSExecutor{GracePeriod: grace}
}

func (e *OSExecutor) Run(ctx context.Context, c Command) (Result, error) {
	errFactory := errors.New()

	if c.Name == "" {
		return Result{}, errFactory.New(ErrEmptyCommand)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return signalGroup(cmd, unix.SIGKILL)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return result, errFactory.Wrap(errors.ErrTimeout, ctx.Err())
		}
		return result, errFactory.WithData(ErrExitStatus, ExitError{
			Code:   exitErr.ExitCode(),
			Stderr: result.Stderr,
		})
	}

	return result, errFactory.Wrap(ErrStartFailed, err)
}

func (e *OSExecutor) Start(ctx context.Context, c Command) (Process, error) {
	errFactory := errors.New()

	if c.Name == "" {
		return nil, errFactory.New(ErrEmptyCommand)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw := io.Pipe()
	p := &osProcess{
		cmd:    cmd,
		lines:  &pipeSource{LineSource: NewLineSource(pr), pipe: pr},
		stderr: newTailBuffer(stderrTailSize),
		grace:  e.GracePeriod,
		exited: make(chan struct{}),
	}
	cmd.Stdout = pw
	cmd.Stderr = p.stderr
	if c.MergeStderr {
		cmd.Stderr = io.MultiWriter(p.stderr, pw)
	}
	cmd.Cancel = p.Terminate
	if e.GracePeriod > 0 {
		cmd.WaitDelay = e.GracePeriod
	}

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return nil, errFactory.Wrap(ErrStartFailed, err)
	}

	go p.reap(pw)
	return p, nil
}

type osProcess struct {
	cmd    *exec.Cmd
	lines  LineSource
	stderr *tailBuffer
	grace  time.Duration

	terminateOnce sync.Once
	terminateErr  error

	// exited is closed once cmd.Wait has returned; waitErr is its result.
	exited  chan struct{}
	waitErr error
}

func (p *osProcess) Lines() LineSource {
	return p.lines
}

// pipeSource closes the read side when the scanner gives up so the output
// copiers fail instead of blocking forever.
type pipeSource struct {
	LineSource
	pipe *io.PipeReader
}

func (s *pipeSource) Next() (string, error) {
	line, err := s.LineSource.Next()
	if err != nil && err != io.EOF {
		_ = s.pipe.CloseWithError(err)
	}
	return line, err
}

// reap waits for the process and its output copiers, then ends the line
// stream.
func (p *osProcess) reap(pw *io.PipeWriter) {
	p.waitErr = p.cmd.Wait()
	_ = pw.Close()
	close(p.exited)
}

func (p *osProcess) Wait() (int, error) {
	<-p.exited
	err := p.waitErr

	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, errors.New().Wrap(ErrStreamFailed, err)
}

func (p *osProcess) Stderr() string {
	return p.stderr.String()
}

func (p *osProcess) Terminate() error {
	p.terminateOnce.Do(func() {
		if err := p.signal(unix.SIGTERM); err != nil {
			p.terminateErr = errors.New().Wrap(ErrSignalFailed, err)
			return
		}
		if p.grace > 0 {
			go p.escalate()
		}
	})
	return p.terminateErr
}

// escalate sends SIGKILL to the group if it outlives the grace period.
func (p *osProcess) escalate() {
	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case <-p.exited:
	case <-timer.C:
		_ = p.signal(unix.SIGKILL)
	}
}

// signal reaches the group only while its leader is still unreaped. Once
// Wait has collected the leader its pid, and so the group id, may belong to
// an unrelated process.
func (p *osProcess) signal(sig unix.Signal) error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(syscall.Signal(0)); errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return signalGroup(p.cmd, sig)
}

// signalGroup signals every process in cmd's group. ESRCH means the group
// is already gone, which is what the caller wanted.
func signalGroup(cmd *exec.Cmd, sig unix.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, sig)
	if err == unix.ESRCH {
		return nil
	}
	return err
}
