package telemetry

import "github.com/Gimel12/nvme-tool-ubuntu/internal/errors"

const (
	// ErrProbeFetch is embedded in a snapshot whose health-log call failed.
	ErrProbeFetch = errors.ErrorCode("telemetry_probe_fetch_failed")
	// ErrProbeTimeout marks a device whose probe did not resolve within a tick.
	ErrProbeTimeout = errors.ErrorCode("telemetry_probe_timeout")
	// ErrAlreadyPolling is returned by Start on a running scheduler.
	ErrAlreadyPolling = errors.ErrorCode("telemetry_already_polling")
)

func init() {
	errors.RegisterMessage(ErrProbeFetch, "Failed to fetch health log")
	errors.RegisterMessage(ErrProbeTimeout, "Health log probe still pending")
	errors.RegisterMessage(ErrAlreadyPolling, "Telemetry polling already started")
}
