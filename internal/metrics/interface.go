package metrics

import (
	"context"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/telemetry"
)

// Recorder stores telemetry snapshots as health history.
type Recorder interface {
	Record(ctx context.Context, set []telemetry.Snapshot) error
	// History returns up to limit readings of device, newest first.
	History(device string, limit int) ([]Reading, error)
	Close() error
}

// Repository is the storage behind a Recorder.
type Repository interface {
	Insert(readings []Reading) error
	Recent(device string, limit int) ([]Reading, error)
	Close() error
}

// Reading is one stored health observation. The pointer fields are nil when
// the health log did not yield a value.
type Reading struct {
	Device          string
	At              time.Time
	TemperatureC    *int
	CriticalWarning *int64
	Error           string
}

// FromSnapshot converts a fresh telemetry snapshot.
func FromSnapshot(s telemetry.Snapshot) Reading {
	r := Reading{Device: s.Node, At: s.At}
	if s.HasTemperature {
		temp := s.TemperatureC
		r.TemperatureC = &temp
	}
	if s.HasCriticalWarning {
		warn := s.CriticalWarning
		r.CriticalWarning = &warn
	}
	if s.Err != nil {
		r.Error = s.Err.Error()
	}
	return r
}
