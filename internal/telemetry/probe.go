package telemetry

import (
	"context"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
)

// Prober fetches one device's health snapshot. It never fails: errors are
// embedded in the returned snapshot.
type Prober interface {
	Probe(ctx context.Context, node string) Snapshot
}

// Probe reads health logs through the health-log collaborator.
type Probe struct {
	executor collaborator.Executor
	commands collaborator.Commands
	now      func() time.Time
	log      logger.Logger
}

func NewProbe(executor collaborator.Executor, commands collaborator.Commands, log logger.Logger) *Probe {
	return &Probe{
		executor: executor,
		commands: commands,
		now:      time.Now,
		log:      log,
	}
}

func (p *Probe) Probe(ctx context.Context, node string) Snapshot {
	errFactory := errors.New()

	result, err := p.executor.Run(ctx, p.commands.SmartLog(node))
	if err != nil {
		stderr := result.Stderr
		if stderr == "" {
			stderr = collaborator.StderrOf(err)
		}
		p.log.Debug().Err(err).Str("device", node).Str("stderr", stderr).Msg("Health log fetch failed")

		fetchErr := errFactory.Wrap(ErrProbeFetch, err)
		if stderr != "" {
			fetchErr = fetchErr.WithData(stderr)
		}
		return Snapshot{Node: node, At: p.now(), Err: fetchErr}
	}

	return parseHealthLog(node, collaborator.SplitLines(result.Stdout), p.now())
}
