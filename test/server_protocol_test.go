package test

import (
	"context"
	"testing"
	"time"

	"github.com/toidiu/russula/pkg/russula/netbench"
	"github.com/toidiu/russula/pkg/russula/network"
	"go.uber.org/goleak"
)

// TestServerHappyPath drives a ServerCoord/ServerWorker pair through
// Ready -> RunPeer -> KillPeer -> Done end to end over a real TCP loopback
// connection (spec.md §8 scenario 1).
func TestServerHappyPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	addr := FreeAddr(t)
	coord, worker := BuildServerPair(t, addr)
	defer coord.Shutdown()
	defer worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	invoker := NewInvoker()
	invoker.Spawn(func() {
		for {
			done, err := worker.PollState(netbench.SWDone)
			if err != nil {
				t.Errorf("worker poll failed: %v", err)
				return
			}
			if done {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(PollDelay):
			}
		}
	})

	if !WaitThisOrTimeout(func() {
		if err := coord.RunTillReady(ctx); err != nil {
			t.Errorf("coordinator failed reaching ready: %v", err)
		}
	}, 10*time.Second) {
		PrintStackTrace(t)
		t.Fatal("timed out waiting for ready")
	}

	if err := coord.RunTillState(ctx, netbench.SCRunPeer); err != nil {
		t.Fatalf("coordinator failed driving to RunPeer: %v", err)
	}
	if err := coord.RunTillState(ctx, netbench.SCKillPeer); err != nil {
		t.Fatalf("coordinator failed driving to KillPeer: %v", err)
	}

	for {
		done, err := coord.PollDone()
		if err != nil {
			t.Fatalf("coordinator poll_done failed: %v", err)
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for coordinator done")
		case <-time.After(PollDelay):
		}
	}

	if !WaitThisOrTimeout(invoker.Wait, 10*time.Second) {
		PrintStackTrace(t)
		t.Fatal("timed out waiting for worker done")
	}
}

// TestServerCoordinatorDialRetry covers the case where the coordinator
// starts dialing before the worker is listening: as long as the worker
// binds addr before the dial-retry budget (spec.md §4.2) is exhausted, the
// dial succeeds rather than failing on its first attempt.
func TestServerCoordinatorDialRetry(t *testing.T) {
	defer goleak.VerifyNone(t)

	addr := FreeAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(50 * time.Millisecond)
		conn, err := network.ListenWorker(ctx, addr)
		if err == nil {
			conn.Close()
		}
	}()

	conn, err := network.DialWorker(ctx, addr, network.DefaultDialRetries, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("expected dial to succeed once the worker starts listening, got: %v", err)
	}
	conn.Close()
}

// TestServerWorkerNeverComesUp covers the case where no worker ever binds
// addr: the dial-retry budget is exhausted and DialWorker reports
// NetworkConnectionRefused (spec.md §8 scenario 4).
func TestServerWorkerNeverComesUp(t *testing.T) {
	addr := FreeAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := network.DialWorker(ctx, addr, network.DefaultDialRetries, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected dial to a worker that never comes up to fail")
	}
	netErr, ok := err.(*network.Error)
	if !ok {
		t.Fatalf("expected a *network.Error, got %T: %v", err, err)
	}
	if netErr.Kind != network.Refused {
		t.Fatalf("expected NetworkConnectionRefused, got %v", netErr.Kind)
	}
}
