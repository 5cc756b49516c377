package benchmark_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/benchmark"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/collaborator"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomes struct {
	mu   sync.Mutex
	list []benchmark.Outcome
}

func (o *outcomes) handle(out benchmark.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, out)
}

func (o *outcomes) byDevice() map[string]benchmark.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	m := make(map[string]benchmark.Outcome, len(o.list))
	for _, out := range o.list {
		m[out.Device] = out
	}
	return m
}

func newOrchestrator(executor *fakeExecutor, seen *outcomes) *benchmark.Orchestrator {
	return benchmark.NewOrchestrator(
		newRunner(executor),
		benchmark.NewFeed(),
		benchmark.WithOutcomeHandler(seen.handle),
	)
}

func waitAll(t *testing.T, o *benchmark.Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
}

func TestOrchestratorKeepsPerDeviceOrder(t *testing.T) {
	const perDevice = 200
	devices := []string{"/dev/nvme0n1", "/dev/nvme1n1"}

	executor := newFakeExecutor()
	procs := make(map[string]*fakeProcess)
	for _, d := range devices {
		procs[d] = newFakeProcess(0, "")
		executor.prepare(d, procs[d])
	}

	orch := newOrchestrator(executor, &outcomes{})
	require.NoError(t, orch.Start(context.Background(), devices))

	var wg sync.WaitGroup
	for _, d := range devices {
		wg.Add(1)
		go func(d string) {
			defer wg.Done()
			for i := 0; i < perDevice; i++ {
				procs[d].emit(fmt.Sprintf("%d bytes (1 MB, 1 MiB) copied, %s#%d, 1 MB/s", i, d, i))
			}
			procs[d].finish()
		}(d)
	}
	wg.Wait()
	waitAll(t, orch)

	feed := orch.Feed().Snapshot()
	require.Len(t, feed, perDevice*len(devices))

	got := make(map[string][]string)
	for _, s := range feed {
		got[s.Device] = append(got[s.Device], s.Speed)
	}
	for _, d := range devices {
		want := make([]string, perDevice)
		for i := range want {
			want[i] = fmt.Sprintf("%s#%d", d, i)
		}
		assert.Equal(t, want, got[d], "samples of %s out of order", d)
	}
}

func TestOrchestratorStartIsIdempotent(t *testing.T) {
	proc := newFakeProcess(0, "")
	executor := newFakeExecutor()
	executor.prepare(node, proc)
	seen := &outcomes{}

	orch := newOrchestrator(executor, seen)
	require.NoError(t, orch.Start(context.Background(), []string{node}))
	require.NoError(t, orch.Start(context.Background(), []string{node, node}))

	assert.Equal(t, 1, executor.startCount(node))
	require.Len(t, orch.Running(), 1)
	assert.Equal(t, node, orch.Running()[0].Node())

	orch.StopAll()
	assert.Empty(t, orch.Running())
	waitAll(t, orch)

	out, ok := seen.byDevice()[node]
	require.True(t, ok)
	assert.Equal(t, benchmark.Failed, out.State)
	assert.True(t, errors.HasCode(out.Err, benchmark.ErrTerminated))
	assert.Equal(t, 1, proc.terminateCalls())
	assert.False(t, orch.Active())
}

func TestOrchestratorSpawnFailureIsIsolated(t *testing.T) {
	const other = "/dev/nvme1n1"
	executor := newFakeExecutor()
	executor.fail(other, errors.New().New(collaborator.ErrStartFailed))
	proc := newFakeProcess(0, "")
	executor.prepare(node, proc)
	seen := &outcomes{}

	orch := newOrchestrator(executor, seen)
	err := orch.Start(context.Background(), []string{other, node})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, benchmark.ErrBenchmarkSpawn))

	running := orch.Running()
	require.Len(t, running, 1)
	assert.Equal(t, node, running[0].Node())

	failed, ok := seen.byDevice()[other]
	require.True(t, ok, "spawn failure is reported as an outcome")
	assert.Equal(t, benchmark.Failed, failed.State)

	proc.finish()
	waitAll(t, orch)
	assert.Equal(t, benchmark.Completed, seen.byDevice()[node].State)
}

func TestOrchestratorBlocksRestartWhileStopping(t *testing.T) {
	proc := newFakeProcess(143, "")
	proc.stubborn = true
	executor := newFakeExecutor()
	executor.prepare(node, proc)

	orch := newOrchestrator(executor, &outcomes{})
	require.NoError(t, orch.Start(context.Background(), []string{node}))

	orch.StopAll()
	err := orch.Start(context.Background(), []string{node})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, benchmark.ErrStillStopping))
	assert.Equal(t, 1, executor.startCount(node))
	assert.True(t, orch.Active())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.HasCode(orch.Wait(ctx), errors.ErrTimeout))

	proc.finish()
	waitAll(t, orch)
	assert.False(t, orch.Active())

	executor.prepare(node, newFakeProcess(0, ""))
	require.NoError(t, orch.Start(context.Background(), []string{node}))
	assert.Equal(t, 2, executor.startCount(node))
	waitAll(t, orch)
}

func TestOrchestratorCompletedSessionLeavesRegistry(t *testing.T) {
	proc := newFakeProcess(0, "")
	proc.emit("1048576000 bytes (1.0 GB, 1000 MiB) copied, 8.5 s, 120 MB/s")
	proc.finish()
	executor := newFakeExecutor()
	executor.prepare(node, proc)
	seen := &outcomes{}

	orch := newOrchestrator(executor, seen)
	require.NoError(t, orch.Start(context.Background(), []string{node}))
	waitAll(t, orch)

	assert.Empty(t, orch.Running())
	out := seen.byDevice()[node]
	assert.Equal(t, benchmark.Completed, out.State)
	assert.Equal(t, 1, out.Samples)

	feed := orch.Feed().Snapshot()
	require.Len(t, feed, 1)
	assert.Equal(t, "8.5 s", feed[0].Speed)
}
