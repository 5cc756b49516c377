package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = 10 * time.Second

// State of the scheduler.
type State int

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

// Selection returns the devices to poll. It is read at the start of every
// tick.
type Selection func() []string

// Publisher receives each completed tick's snapshot set.
type Publisher func([]Snapshot)

type Option func(*Scheduler)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithProbeTimeout bounds how long a tick waits for its probes. Devices
// still pending keep their previous snapshot.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPublisher adds a callback invoked after every tick.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) {
		s.publishers = append(s.publishers, p)
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

// Scheduler polls the selected devices on a fixed period. Ticks never
// overlap: a slow tick delays the next one.
type Scheduler struct {
	prober     Prober
	board      *Board
	interval   time.Duration
	timeout    time.Duration
	publishers []Publisher
	log        logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inflightMu sync.Mutex
	inflight   map[string]bool
}

func NewScheduler(prober Prober, board *Board, opts ...Option) *Scheduler {
	s := &Scheduler{
		prober:   prober,
		board:    board,
		interval: DefaultInterval,
		log:      logger.Nop(),
		inflight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout == 0 {
		s.timeout = s.interval
	}
	return s
}

// State reports whether the scheduler is polling.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return Polling
	}
	return Idle
}

// Start moves Idle to Polling. The first tick runs immediately.
func (s *Scheduler) Start(ctx context.Context, selection Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New().New(ErrAlreadyPolling)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, selection, s.done)

	s.log.Info().Dur("interval", s.interval).Dur("probe_timeout", s.timeout).Msg("Telemetry polling started")
	return nil
}

// Stop moves Polling to Idle. It cancels a tick in progress and waits for
// the polling goroutine to exit. Probes abandoned by a timed-out tick may
// still be running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.log.Info().Msg("Telemetry polling stopped")
}

func (s *Scheduler) loop(ctx context.Context, selection Selection, done chan struct{}) {
	defer close(done)

	s.Tick(ctx, selection())

	// time.Ticker drops ticks while we are busy, so a slow tick defers the
	// next one instead of queueing.
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Tick(ctx, selection())
		}
	}
}

type probeResult struct {
	node string
	snap Snapshot
}

// Tick probes nodes concurrently, waits for all of them or the probe
// timeout, then publishes the full set at once. A tick whose ctx is
// cancelled publishes nothing and returns nil.
func (s *Scheduler) Tick(ctx context.Context, nodes []string) []Snapshot {
	started := time.Now()
	nodes = dedupe(nodes)

	tickCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := make(chan probeResult, len(nodes))
	var g errgroup.Group
	for _, node := range nodes {
		if !s.claim(node) {
			s.log.Debug().Str("device", node).Msg("Previous probe still pending, skipping")
			continue
		}
		g.Go(func() error {
			defer s.release(node)
			results <- probeResult{node: node, snap: s.prober.Probe(tickCtx, node)}
			return nil
		})
	}

	all := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(all)
	}()

	fresh := make(map[string]Snapshot, len(nodes))
collect:
	for {
		select {
		case r := <-results:
			fresh[r.node] = r.snap
		case <-all:
			// Every probe has sent; drain what is buffered.
			for {
				select {
				case r := <-results:
					fresh[r.node] = r.snap
				default:
					break collect
				}
			}
		case <-tickCtx.Done():
			break collect
		}
	}

	// A stopped scheduler leaves the last complete tick in place.
	if ctx.Err() != nil {
		s.log.Debug().
			Int("devices", len(nodes)).
			Int("answered", len(fresh)).
			Msg("Telemetry tick abandoned")
		return nil
	}

	set := make([]Snapshot, 0, len(nodes))
	pending := 0
	for _, node := range nodes {
		if snap, ok := fresh[node]; ok {
			set = append(set, snap)
			continue
		}
		pending++
		set = append(set, s.carryOver(node))
	}

	s.board.Replace(set)
	for _, publish := range s.publishers {
		publish(set)
	}

	s.log.Debug().
		Int("devices", len(nodes)).
		Int("pending", pending).
		Dur("duration", time.Since(started)).
		Msg("Telemetry tick complete")

	return set
}

// carryOver keeps the previous snapshot of a device whose probe is still
// outstanding.
func (s *Scheduler) carryOver(node string) Snapshot {
	if prev, ok := s.board.Get(node); ok {
		prev.Stale = true
		return prev
	}
	return Snapshot{
		Node:  node,
		At:    time.Now(),
		Err:   errors.New().New(ErrProbeTimeout),
		Stale: true,
	}
}

func (s *Scheduler) claim(node string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if s.inflight[node] {
		return false
	}
	s.inflight[node] = true
	return true
}

func (s *Scheduler) release(node string) {
	s.inflightMu.Lock()
	delete(s.inflight, node)
	s.inflightMu.Unlock()
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
