package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/app"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/benchmark"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/config"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/metrics"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/pid"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/telemetry"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	// idleCheck is how often headless mode looks for finished sessions.
	idleCheck = time.Second
	// historyWindow is how many stored readings the headless summary covers.
	historyWindow = 100
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the tool and returns the process exit code. Everything it
// opens is released before it returns.
func execute(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return 1
	}

	closeLog, err := initLogging(cfg)
	if err != nil {
		fmt.Printf("failed to initialize logging: %v\n", err)
		return 1
	}
	defer closeLog()
	logger.Debug().Msg("Config loaded")

	pidPath := pid.Path()
	if err := pid.Write(pidPath); err != nil {
		logger.Error().Err(err).Msg("failed to write PID file")
		return 1
	}

	code := run(cfg)

	if err := pid.Remove(pidPath); err != nil {
		logger.Error().Err(err).Msg("failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
	return code
}

// initLogging sends logs to the configured file. Without one, the TUI
// discards logs so they cannot tear the screen, and headless mode logs to
// stdout. The returned func closes the log file.
func initLogging(cfg *config.Config) (func(), error) {
	level, _ := logger.ParseLevel(cfg.LogLevel)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.New().Wrap(errors.ErrOpenLogFile, err)
		}
		logger.Init(level, logger.IsService(), f)
		return func() {
			logger.Init(level, logger.IsService(), io.Discard)
			_ = f.Close()
		}, nil
	}

	var out io.Writer
	if !cfg.Headless {
		out = io.Discard
	}
	logger.Init(level, logger.IsService(), out)
	return func() {}, nil
}

func run(cfg *config.Config) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	log := logger.Default()

	recorder, err := metrics.NewService(metricsConfig(cfg), log.With("component", "metrics"))
	if err != nil {
		logger.Error().Err(err).Msg("failed to open telemetry history, continuing without it")
		recorder = metrics.Noop()
	}

	engine := app.New(app.Config{
		Commands: collaborator.Commands{
			Elevate:   cfg.ElevateCommand(),
			NVMe:      cfg.NVMe,
			DD:        cfg.DD,
			BlockSize: cfg.BlockSize,
		},
		Interval:     cfg.PollInterval(),
		ProbeTimeout: cfg.ProbeDeadline(),
	}, collaborator.NewOSExecutor(cfg.Grace()), recorder, log)

	var loopErr error
	if cfg.Headless {
		loopErr = headless(ctx, cfg, engine)
	} else {
		loopErr = interactive(ctx, cfg, engine)
	}
	if loopErr != nil {
		logger.Error().Err(loopErr).Msg("error in main loop")
	}

	if err := shutdown(engine, cfg.Grace()); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
		return 1
	}
	if loopErr != nil {
		return 1
	}
	return 0
}

func metricsConfig(cfg *config.Config) metrics.Config {
	mc := metrics.DefaultConfig()
	mc.Enabled = cfg.Telemetry
	mc.DBPath = cfg.TelemetryDB
	return mc
}

func interactive(ctx context.Context, cfg *config.Config, engine *app.App) error {
	streams := ui.Streams{
		Samples:   engine.Samples(ctx),
		Snapshots: engine.Snapshots(),
		Outcomes:  engine.Outcomes(),
	}

	program := tea.NewProgram(
		ui.NewModel(ctx, engine, streams, cfg.Devices),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.New().Wrap(errors.ErrMainLoop, err)
	}
	return nil
}

// headless benchmarks the configured devices, logging samples and metrics,
// until every session has ended or a signal arrives.
func headless(ctx context.Context, cfg *config.Config, engine *app.App) error {
	errFactory := errors.New()

	listing, err := engine.Refresh(ctx)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(listing.Records))
	for _, r := range listing.Records {
		present[r.Node] = true
		logger.Info().Str("device", r.Node).Str("serial", r.Serial).Str("model", r.Model).Str("usage", r.Usage()).Msg("Drive found")
	}

	var nodes []string
	for _, n := range cfg.Devices {
		if !present[n] {
			logger.Warn().Str("device", n).Msg("Device not in listing, skipping")
			continue
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 0 {
		return errFactory.New(errors.ErrNoDevices)
	}

	engine.Select(nodes)
	if err := engine.StartTelemetry(ctx); err != nil {
		return err
	}
	if err := engine.StartBenchmark(ctx, nodes); err != nil {
		logger.Error().Err(err).Msg("Some benchmarks failed to start")
	}

	defer logHistory(engine, nodes)

	samples := engine.Samples(ctx)
	ticker := time.NewTicker(idleCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping benchmarks")
			return nil
		case s, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			logger.Info().Str("device", s.Device).Uint64("seq", s.Seq).Str("speed", s.Speed).Msg("Sample")
		case set := <-engine.Snapshots():
			logSnapshots(set)
		case o := <-engine.Outcomes():
			logOutcome(o)
		case <-ticker.C:
			if !engine.BenchmarkActive() {
				drainOutcomes(engine)
				logger.Info().Msg("All benchmarks finished")
				return nil
			}
		}
	}
}

func drainOutcomes(engine *app.App) {
	for {
		select {
		case o := <-engine.Outcomes():
			logOutcome(o)
		default:
			return
		}
	}
}

func logSnapshots(set []telemetry.Snapshot) {
	for _, s := range set {
		event := logger.Info().Str("device", s.Node).Bool("stale", s.Stale)
		if s.HasTemperature {
			event.Int("temperature_c", s.TemperatureC)
		}
		if s.HasCriticalWarning {
			event.Int64("critical_warning", s.CriticalWarning)
		}
		if s.Err != nil {
			event.Err(s.Err)
		}
		event.Msg("Health")
	}
}

func logOutcome(o benchmark.Outcome) {
	event := logger.Info()
	if o.State != benchmark.Completed && !errors.HasCode(o.Err, benchmark.ErrTerminated) {
		event = logger.Warn()
		event.Str("reason", o.Reason)
	}
	event.Str("device", o.Device).
		Str("state", o.State.String()).
		Int("samples", o.Samples).
		Dur("duration", o.Duration).
		Msg("Benchmark finished")
}

// logHistory summarises the stored health readings of each benchmarked
// device. Nothing is logged when history recording is off.
func logHistory(engine *app.App, nodes []string) {
	for _, node := range nodes {
		readings, err := engine.History(node, historyWindow)
		if err != nil {
			logger.Warn().Err(err).Str("device", node).Msg("Failed to read health history")
			continue
		}
		if len(readings) == 0 {
			continue
		}

		peak, warnings, failures := -1, 0, 0
		for _, r := range readings {
			if r.TemperatureC != nil && *r.TemperatureC > peak {
				peak = *r.TemperatureC
			}
			if r.CriticalWarning != nil && *r.CriticalWarning != 0 {
				warnings++
			}
			if r.Error != "" {
				failures++
			}
		}

		event := logger.Info().
			Str("device", node).
			Int("readings", len(readings)).
			Int("critical_warnings", warnings).
			Int("probe_failures", failures)
		if peak >= 0 {
			event.Int("peak_temperature_c", peak)
		}
		event.Msg("Health history")
	}
}

func shutdown(engine *app.App, grace time.Duration) error {
	// Wait one grace period for SIGTERM plus one for the SIGKILL to land.
	ctx, cancel := context.WithTimeout(context.Background(), 2*grace+time.Second)
	defer cancel()
	return engine.Shutdown(ctx)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
