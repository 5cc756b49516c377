package benchmark

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
)

// Outcome summarizes a session that has ended.
type Outcome struct {
	Device   string
	Session  string
	State    State
	Err      error
	Reason   string
	Samples  int
	Duration time.Duration
}

type OutcomeHandler func(Outcome)

type OrchestratorOption func(*Orchestrator)

// WithOutcomeHandler adds a callback run once per finished session.
func WithOutcomeHandler(h OutcomeHandler) OrchestratorOption {
	return func(o *Orchestrator) {
		o.handlers = append(o.handlers, h)
	}
}

func WithOrchestratorLogger(log logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// Orchestrator runs at most one session per device and funnels every
// sample into a shared Feed.
type Orchestrator struct {
	runner   *Runner
	feed     *Feed
	handlers []OutcomeHandler
	log      logger.Logger

	mu       sync.Mutex
	registry map[string]*Session
	// draining holds stopped sessions until their process exits, so a node
	// never has two live collaborators.
	draining map[string]*Session

	wg sync.WaitGroup
}

func NewOrchestrator(runner *Runner, feed *Feed, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		runner:   runner,
		feed:     feed,
		log:      logger.Nop(),
		registry: make(map[string]*Session),
		draining: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Feed returns the shared result feed.
func (o *Orchestrator) Feed() *Feed {
	return o.feed
}

// Start launches a session for every node that has none. Nodes already
// running are left alone. Spawn failures do not affect other nodes; they
// are reported as outcomes and returned joined.
func (o *Orchestrator) Start(ctx context.Context, nodes []string) error {
	errFactory := errors.New()

	var errs []error
	var failed []*Session

	o.mu.Lock()
	for _, node := range dedupe(nodes) {
		if _, ok := o.registry[node]; ok {
			o.log.Debug().Str("device", node).Msg("Benchmark already running")
			continue
		}
		if _, ok := o.draining[node]; ok {
			errs = append(errs, errFactory.WithData(ErrStillStopping, node))
			continue
		}

		session, err := o.runner.Start(ctx, node, o.feed.Append)
		if err != nil {
			errs = append(errs, err)
			failed = append(failed, session)
			continue
		}

		o.registry[node] = session
		o.wg.Add(1)
		go o.reap(session)
	}
	o.mu.Unlock()

	for _, s := range failed {
		o.report(s)
	}

	return errors.Join(errs...)
}

// StopAll terminates every registered session and clears the registry.
// It does not wait for the processes to exit; use Wait for that.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	sessions := make([]*Session, 0, len(o.registry))
	for node, s := range o.registry {
		o.draining[node] = s
		sessions = append(sessions, s)
	}
	o.registry = make(map[string]*Session)
	o.mu.Unlock()

	for _, s := range sessions {
		if s.State().Terminal() {
			continue
		}
		// Failures are logged by the session; the group may already be gone.
		_ = s.Terminate()
	}

	if len(sessions) > 0 {
		o.log.Info().Int("sessions", len(sessions)).Msg("Stopping all benchmarks")
	}
}

// Running returns the registered sessions ordered by device node.
func (o *Orchestrator) Running() []*Session {
	o.mu.Lock()
	out := make([]*Session, 0, len(o.registry))
	for _, s := range o.registry {
		out = append(out, s)
	}
	o.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Node() < out[j].Node()
	})
	return out
}

// Active reports whether any session, registered or draining, is live.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.registry)+len(o.draining) > 0
}

// Wait blocks until every session started so far has been reaped or ctx
// is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New().Wrap(errors.ErrTimeout, ctx.Err())
	}
}

func (o *Orchestrator) reap(s *Session) {
	defer o.wg.Done()
	<-s.Done()

	o.mu.Lock()
	if o.registry[s.Node()] == s {
		delete(o.registry, s.Node())
	}
	if o.draining[s.Node()] == s {
		delete(o.draining, s.Node())
	}
	o.mu.Unlock()

	o.report(s)
}

func (o *Orchestrator) report(s *Session) {
	outcome := Outcome{
		Device:   s.Node(),
		Session:  s.ID(),
		State:    s.State(),
		Err:      s.Err(),
		Reason:   s.Reason(),
		Samples:  s.Samples(),
		Duration: s.Duration(),
	}
	for _, h := range o.handlers {
		h(outcome)
	}
}

func dedupe(nodes []string) []string {
	seen := make(map[string]bool, len(nodes))
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
