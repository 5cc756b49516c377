package benchmark_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
)

// fakeProcess replays lines pushed by the test. Terminate ends the stream
// the way a killed collaborator would.
type fakeProcess struct {
	lines      chan string
	exitCode   int
	stderr     string
	terminated chan struct{}
	once       sync.Once
	terminates int32
	// stubborn processes ignore Terminate until finish is called.
	stubborn bool
}

func newFakeProcess(exitCode int, stderr string) *fakeProcess {
	return &fakeProcess{
		lines:      make(chan string, 1024),
		exitCode:   exitCode,
		stderr:     stderr,
		terminated: make(chan struct{}),
	}
}

func (p *fakeProcess) emit(lines ...string) {
	for _, l := range lines {
		p.lines <- l
	}
}

// finish ends the output stream; the process then exits with exitCode.
func (p *fakeProcess) finish() {
	close(p.lines)
}

func (p *fakeProcess) Lines() collaborator.LineSource {
	return p
}

func (p *fakeProcess) Next() (string, error) {
	select {
	case <-p.terminated:
		return "", io.EOF
	default:
	}
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-p.terminated:
		return "", io.EOF
	}
}

func (p *fakeProcess) Wait() (int, error) {
	select {
	case <-p.terminated:
		return -1, nil
	default:
		return p.exitCode, nil
	}
}

func (p *fakeProcess) Stderr() string {
	return p.stderr
}

func (p *fakeProcess) Terminate() error {
	atomic.AddInt32(&p.terminates, 1)
	if p.stubborn {
		return nil
	}
	p.once.Do(func() { close(p.terminated) })
	return nil
}

func (p *fakeProcess) terminateCalls() int {
	return int(atomic.LoadInt32(&p.terminates))
}

// fakeExecutor hands out a prepared process per target device.
type fakeExecutor struct {
	mu       sync.Mutex
	procs    map[string]*fakeProcess
	failures map[string]error
	starts   map[string]int
	commands []collaborator.Command
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		procs:    make(map[string]*fakeProcess),
		failures: make(map[string]error),
		starts:   make(map[string]int),
	}
}

func (e *fakeExecutor) prepare(node string, proc *fakeProcess) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.procs[node] = proc
}

func (e *fakeExecutor) fail(node string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[node] = err
}

func (e *fakeExecutor) startCount(node string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts[node]
}

func (e *fakeExecutor) Run(context.Context, collaborator.Command) (collaborator.Result, error) {
	panic("not used by benchmarks")
}

func (e *fakeExecutor) Start(_ context.Context, cmd collaborator.Command) (collaborator.Process, error) {
	node := targetOf(cmd)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, cmd)
	e.starts[node]++

	if err := e.failures[node]; err != nil {
		return nil, err
	}
	proc, ok := e.procs[node]
	if !ok {
		proc = newFakeProcess(0, "")
		proc.finish()
	}
	return proc, nil
}

func targetOf(cmd collaborator.Command) string {
	for _, arg := range cmd.Args {
		if strings.HasPrefix(arg, "of=") {
			return strings.TrimPrefix(arg, "of=")
		}
	}
	return ""
}
