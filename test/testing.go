// Package test holds end-to-end scenarios driving real TCP links between
// Coordinator and Worker role pairs (spec.md §8), plus the small helpers
// those scenarios share, mirroring the teacher's own test/testing.go
// (cluster/invoker builders, WaitThisOrTimeout, PrintStackTrace).
package test

import (
	"context"
	"net"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/definition"
	"github.com/toidiu/russula/pkg/russula/netbench"
)

// PollDelay is deliberately short so end-to-end tests run quickly; it is
// shorter than the codec's 50ms per-call read timeout.
const PollDelay = 20 * time.Millisecond

// Invoker runs a function in the background and can be waited on to join
// every goroutine it spawned, mirroring the teacher's core.Invoker /
// TestInvoker pattern. Russula itself never needs a shared background
// invoker (every link is driven by whatever goroutine calls PollState), so
// this lives in the test harness, for scenarios that drive several
// coordinator/worker pairs concurrently.
type Invoker interface {
	Spawn(f func())
}

// TestInvoker is the concrete Invoker used by end-to-end scenarios.
type TestInvoker struct {
	group sync.WaitGroup
}

// NewInvoker returns an Invoker whose Wait blocks until every spawned
// function has returned.
func NewInvoker() *TestInvoker {
	return &TestInvoker{}
}

func (t *TestInvoker) Spawn(f func()) {
	t.group.Add(1)
	go func() {
		defer t.group.Done()
		f()
	}()
}

func (t *TestInvoker) Wait() {
	t.group.Wait()
}

// FreeAddr reserves an ephemeral loopback port and immediately releases it
// for a worker to bind.
func FreeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed reserving a free address: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("failed releasing reserved address: %v", err)
	}
	return addr
}

// ScriptPath resolves one of scripts/sim_netbench_*.sh relative to the
// repository root, independent of the package running the test.
func ScriptPath(name string) string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "scripts", name)
}

// SimDriver builds a netbench.Driver that runs the simulation script
// rather than a real s2n-netbench binary, capturing output under t's temp
// directory.
func SimDriver(t *testing.T, script string) netbench.Driver {
	t.Helper()
	return netbench.Driver{
		Simulate:   true,
		SimScript:  ScriptPath(script),
		OutputPath: filepath.Join(t.TempDir(), "netbench-output.log"),
	}
}

// BuildServerPair builds a connected ServerCoord/ServerWorker link: the
// worker starts listening on addr in the background while the coordinator
// dials it, relying on the dial-retry budget if the dial comes first
// (spec.md §4.2).
func BuildServerPair(t *testing.T, addr string) (coord *russula.Russula, worker *russula.Russula) {
	t.Helper()
	ctx := context.Background()

	workerBuilder := russula.NewBuilder(russula.ServerWorker, []string{addr}, func(a string, log definition.Logger) russula.Protocol {
		return netbench.NewServerWorkerProtocol(a, SimDriver(t, "sim_netbench_server.sh"), PollDelay, log)
	})
	workerBuilder.PollDelay = PollDelay
	workerBuilder.Logger = definition.NewDefaultLogger("test-server-worker")

	built := make(chan *russula.Russula, 1)
	errCh := make(chan error, 1)
	go func() {
		w, err := workerBuilder.Build(ctx)
		if err != nil {
			errCh <- err
			return
		}
		built <- w
	}()

	coordBuilder := russula.NewBuilder(russula.ServerCoord, []string{addr}, func(a string, log definition.Logger) russula.Protocol {
		return netbench.NewServerCoordProtocol(PollDelay, log)
	})
	coordBuilder.PollDelay = PollDelay
	coordBuilder.Logger = definition.NewDefaultLogger("test-server-coord")

	coord, err := coordBuilder.Build(ctx)
	if err != nil {
		t.Fatalf("failed building server coordinator: %v", err)
	}

	select {
	case worker = <-built:
	case err := <-errCh:
		t.Fatalf("failed building server worker: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for server worker to accept coordinator's connection")
	}
	return coord, worker
}

// BuildClientPair builds a connected ClientCoord/ClientWorker link,
// analogous to BuildServerPair.
func BuildClientPair(t *testing.T, addr string) (coord *russula.Russula, worker *russula.Russula) {
	t.Helper()
	ctx := context.Background()

	workerBuilder := russula.NewBuilder(russula.ClientWorker, []string{addr}, func(a string, log definition.Logger) russula.Protocol {
		return netbench.NewClientWorkerProtocol(a, SimDriver(t, "sim_netbench_client.sh"), PollDelay, log)
	})
	workerBuilder.PollDelay = PollDelay
	workerBuilder.Logger = definition.NewDefaultLogger("test-client-worker")

	built := make(chan *russula.Russula, 1)
	errCh := make(chan error, 1)
	go func() {
		w, err := workerBuilder.Build(ctx)
		if err != nil {
			errCh <- err
			return
		}
		built <- w
	}()

	coordBuilder := russula.NewBuilder(russula.ClientCoord, []string{addr}, func(a string, log definition.Logger) russula.Protocol {
		return netbench.NewClientCoordProtocol(PollDelay, log)
	})
	coordBuilder.PollDelay = PollDelay
	coordBuilder.Logger = definition.NewDefaultLogger("test-client-coord")

	coord, err := coordBuilder.Build(ctx)
	if err != nil {
		t.Fatalf("failed building client coordinator: %v", err)
	}

	select {
	case worker = <-built:
	case err := <-errCh:
		t.Fatalf("failed building client worker: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for client worker to accept coordinator's connection")
	}
	return coord, worker
}

// WaitThisOrTimeout runs cb in a goroutine and reports whether it finished
// within duration.
func WaitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan bool)
	go func() {
		cb()
		done <- true
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}

// PrintStackTrace dumps every goroutine's stack, used to diagnose a test
// that deadlocked rather than failed cleanly.
func PrintStackTrace(t *testing.T) {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	t.Errorf("%s", buf[:n])
}
