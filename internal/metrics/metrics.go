package metrics

import (
	"context"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/logger"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/telemetry"
)

type service struct {
	repo Repository
	log  logger.Logger
}

type noopRecorder struct{}

// NewService opens the health history. A disabled config yields a recorder
// that drops everything.
func NewService(cfg Config, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Telemetry history disabled, using no-op recorder")
		return Noop(), nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create telemetry repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Msg("Telemetry history initialized")

	return NewRecorder(repo, log), nil
}

// NewRecorder records through repo.
func NewRecorder(repo Repository, log logger.Logger) Recorder {
	return &service{repo: repo, log: log}
}

// Record stores every fresh snapshot in set. Stale carry-overs were stored
// when they were fresh and are skipped.
func (s *service) Record(ctx context.Context, set []telemetry.Snapshot) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	readings := make([]Reading, 0, len(set))
	for _, snap := range set {
		if snap.Stale {
			continue
		}
		readings = append(readings, FromSnapshot(snap))
	}
	if len(readings) == 0 {
		return nil
	}

	if err := s.repo.Insert(readings); err != nil {
		return errFactory.Wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *service) History(device string, limit int) ([]Reading, error) {
	errFactory := errors.New()

	if limit <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidArgument, limit)
	}
	readings, err := s.repo.Recent(device, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	return readings, nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}
	return nil
}

// Noop returns a Recorder that drops everything.
func Noop() Recorder {
	return noopRecorder{}
}

func (noopRecorder) Record(context.Context, []telemetry.Snapshot) error {
	return nil
}

func (noopRecorder) History(string, int) ([]Reading, error) {
	return nil, nil
}

func (noopRecorder) Close() error {
	return nil
}
