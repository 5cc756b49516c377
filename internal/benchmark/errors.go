package benchmark

import "github.com/Gimel12/nvme-tool-ubuntu/internal/errors"

const (
	// ErrBenchmarkSpawn means the write collaborator could not be started.
	ErrBenchmarkSpawn = errors.ErrorCode("benchmark_spawn_failed")
	// ErrBenchmarkRuntime means the collaborator exited non-zero on its own.
	ErrBenchmarkRuntime = errors.ErrorCode("benchmark_runtime_failed")
	// ErrTerminated means the session was stopped by the operator.
	ErrTerminated = errors.ErrorCode("benchmark_terminated")
	// ErrStillStopping is returned for a node whose stopped session has
	// not exited yet.
	ErrStillStopping = errors.ErrorCode("benchmark_still_stopping")
)

func init() {
	errors.RegisterMessage(ErrBenchmarkSpawn, "Failed to start benchmark")
	errors.RegisterMessage(ErrBenchmarkRuntime, "Benchmark failed")
	errors.RegisterMessage(ErrTerminated, "Benchmark terminated")
	errors.RegisterMessage(ErrStillStopping, "Previous benchmark is still stopping")
}
