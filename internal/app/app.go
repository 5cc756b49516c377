package app

import (
	"context"
	"sync"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/benchmark"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/device"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/metrics"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/telemetry"
)

const (
	outcomeBuffer = 64
	sampleBuffer  = 256
)

// Config wires the engine to its collaborators.
type Config struct {
	Commands     collaborator.Commands
	Interval     time.Duration
	ProbeTimeout time.Duration
}

// App is the boundary the presentation layer talks to. Every method is
// safe to call from the UI goroutine; none of them waits on a collaborator
// except Refresh.
type App struct {
	catalog      *device.Catalog
	orchestrator *benchmark.Orchestrator
	scheduler    *telemetry.Scheduler
	board        *telemetry.Board
	recorder     metrics.Recorder
	log          logger.Logger

	mu       sync.RWMutex
	listing  device.Listing
	selected []string

	snapshots chan []telemetry.Snapshot
	outcomes  chan benchmark.Outcome
}

// New builds the engine. A nil recorder disables telemetry history.
func New(cfg Config, executor collaborator.Executor, recorder metrics.Recorder, log logger.Logger) *App {
	if recorder == nil {
		recorder = metrics.Noop()
	}

	a := &App{
		board:     telemetry.NewBoard(),
		recorder:  recorder,
		log:       log,
		snapshots: make(chan []telemetry.Snapshot, 1),
		outcomes:  make(chan benchmark.Outcome, outcomeBuffer),
	}

	a.catalog = device.NewCatalog(executor, cfg.Commands, log.With("component", "catalog"))

	runner := benchmark.NewRunner(executor, cfg.Commands, log.With("component", "benchmark"))
	a.orchestrator = benchmark.NewOrchestrator(runner, benchmark.NewFeed(),
		benchmark.WithOrchestratorLogger(log.With("component", "orchestrator")),
		benchmark.WithOutcomeHandler(a.publishOutcome),
	)

	probe := telemetry.NewProbe(executor, cfg.Commands, log.With("component", "probe"))
	a.scheduler = telemetry.NewScheduler(probe, a.board,
		telemetry.WithInterval(cfg.Interval),
		telemetry.WithProbeTimeout(cfg.ProbeTimeout),
		telemetry.WithLogger(log.With("component", "telemetry")),
		telemetry.WithPublisher(a.record),
		telemetry.WithPublisher(a.publishSnapshots),
	)

	return a
}

// Refresh re-enumerates devices. On failure the catalog is emptied and the
// error is returned for display. Selected nodes that disappeared are
// dropped from the selection.
func (a *App) Refresh(ctx context.Context) (device.Listing, error) {
	listing, err := a.catalog.Refresh(ctx)

	a.mu.Lock()
	a.listing = listing
	if err == nil {
		present := make(map[string]bool, len(listing.Records))
		for _, r := range listing.Records {
			present[r.Node] = true
		}
		kept := a.selected[:0]
		for _, node := range a.selected {
			if present[node] {
				kept = append(kept, node)
			}
		}
		a.selected = kept
	}
	a.mu.Unlock()

	return listing, err
}

// Devices returns the listing from the last Refresh.
func (a *App) Devices() device.Listing {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.listing
}

// Select replaces the operator's device selection.
func (a *App) Select(nodes []string) {
	seen := make(map[string]bool, len(nodes))
	selected := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		selected = append(selected, n)
	}

	a.mu.Lock()
	a.selected = selected
	a.mu.Unlock()
}

// Selected returns a copy of the current selection.
func (a *App) Selected() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.selected))
	copy(out, a.selected)
	return out
}

// StartBenchmark starts a benchmark on every node in nodes that is not
// already running one.
func (a *App) StartBenchmark(ctx context.Context, nodes []string) error {
	if len(nodes) == 0 {
		return errors.New().New(errors.ErrNoDevices)
	}
	return a.orchestrator.Start(ctx, nodes)
}

// StopBenchmark terminates all running benchmarks without waiting.
func (a *App) StopBenchmark() {
	a.orchestrator.StopAll()
}

// Sessions lists the running benchmark sessions.
func (a *App) Sessions() []*benchmark.Session {
	return a.orchestrator.Running()
}

// BenchmarkActive reports whether any benchmark process is still alive.
func (a *App) BenchmarkActive() bool {
	return a.orchestrator.Active()
}

// StartTelemetry polls the current selection on the configured interval.
func (a *App) StartTelemetry(ctx context.Context) error {
	return a.scheduler.Start(ctx, a.Selected)
}

func (a *App) StopTelemetry() {
	a.scheduler.Stop()
}

func (a *App) TelemetryState() telemetry.State {
	return a.scheduler.State()
}

// LatestTelemetry is the snapshot set of the last completed tick.
func (a *App) LatestTelemetry() []telemetry.Snapshot {
	return a.board.Latest()
}

// History returns up to limit stored health readings of device, newest
// first. It is empty when history recording is off.
func (a *App) History(device string, limit int) ([]metrics.Reading, error) {
	return a.recorder.History(device, limit)
}

// Samples streams every throughput sample, starting from the first one
// ever recorded, until ctx is done.
func (a *App) Samples(ctx context.Context) <-chan benchmark.Sample {
	feed := a.orchestrator.Feed()
	out := make(chan benchmark.Sample, sampleBuffer)

	go func() {
		defer close(out)
		cursor := 0
		for {
			updated := feed.Updated()
			entries, next := feed.Since(cursor)
			cursor = next

			for _, s := range entries {
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
			if len(entries) > 0 {
				continue
			}

			select {
			case <-updated:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Snapshots delivers each tick's snapshot set. A reader that falls behind
// only sees the newest set.
func (a *App) Snapshots() <-chan []telemetry.Snapshot {
	return a.snapshots
}

// Outcomes delivers the end state of every benchmark session.
func (a *App) Outcomes() <-chan benchmark.Outcome {
	return a.outcomes
}

// Shutdown stops benchmarks and polling, waits for sessions to exit until
// ctx is done, then closes the telemetry history.
func (a *App) Shutdown(ctx context.Context) error {
	errFactory := errors.New()

	a.orchestrator.StopAll()
	a.scheduler.Stop()

	var errs []error
	if err := a.orchestrator.Wait(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Benchmarks still running at shutdown")
		errs = append(errs, err)
	}
	if err := a.recorder.Close(); err != nil {
		a.log.Error().Err(err).Msg("Failed to close telemetry history")
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errFactory.Wrap(errors.ErrShutdownFailed, errors.Join(errs...))
	}
	return nil
}

func (a *App) record(set []telemetry.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.recorder.Record(ctx, set); err != nil {
		a.log.Warn().Err(err).Msg("Failed to record telemetry")
	}
}

func (a *App) publishSnapshots(set []telemetry.Snapshot) {
	for {
		select {
		case a.snapshots <- set:
			return
		default:
		}
		// Drop the unread set; only the latest tick matters.
		select {
		case <-a.snapshots:
		default:
		}
	}
}

func (a *App) publishOutcome(o benchmark.Outcome) {
	select {
	case a.outcomes <- o:
	default:
		a.log.Warn().Str("device", o.Device).Msg("Outcome dropped, nobody is reading")
	}
}
