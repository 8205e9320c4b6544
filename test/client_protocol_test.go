package test

import (
	"context"
	"testing"
	"time"

	"github.com/toidiu/russula/pkg/russula/netbench"
	"go.uber.org/goleak"
)

// TestClientHappyPath drives a ClientCoord/ClientWorker pair through
// Ready -> RunPeer -> Done end to end. Unlike the server pair, the client
// worker's benchmark run completes on its own rather than being killed by
// the coordinator (spec.md §8 scenario 2, §4.6-4.7).
func TestClientHappyPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	addr := FreeAddr(t)
	coord, worker := BuildClientPair(t, addr)
	defer coord.Shutdown()
	defer worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driveWorker := make(chan struct{})
	go func() {
		defer close(driveWorker)
		for {
			done, err := worker.PollState(netbench.CWDone)
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
	}()

	if err := coord.RunTillReady(ctx); err != nil {
		t.Fatalf("coordinator failed reaching ready: %v", err)
	}

	if err := coord.RunTillState(ctx, netbench.CCRunPeer); err != nil {
		t.Fatalf("coordinator failed driving to RunPeer: %v", err)
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

	select {
	case <-driveWorker:
	case <-ctx.Done():
		t.Fatal("timed out waiting for worker done")
	}
}

// TestClientWorkerReplayResistance confirms that resending an already
// consumed token (a stale or duplicated frame arriving after the worker
// already advanced past it) does not corrupt state: PeerTokens still
// recognizes the tag, but since the link only advances on the exact
// Step().Expect token for the worker's *current* state, a replay of an
// earlier coordinator token is simply ignored rather than rewinding
// progress (spec.md §8 scenario 6 "replay resistance").
func TestClientWorkerReplayResistance(t *testing.T) {
	addr := FreeAddr(t)
	coord, worker := BuildClientPair(t, addr)
	defer coord.Shutdown()
	defer worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Let the coordinator poll a few times before the worker does, so that
	// several CheckPeer frames are queued on the link and a duplicate one is
	// still waiting for the worker once it has reached Ready.
	coordReady := make(chan error, 1)
	go func() { coordReady <- coord.RunTillReady(ctx) }()
	time.Sleep(10 * PollDelay)

	if err := worker.RunTillReady(ctx); err != nil {
		t.Fatalf("worker failed reaching ready: %v", err)
	}
	if err := <-coordReady; err != nil {
		t.Fatalf("coordinator failed reaching ready: %v", err)
	}

	before := worker.CurrentState()

	// A CheckPeer token is only ever valid while the worker is still in
	// WaitCoordInit; by the time the pair has reached Ready, replaying it
	// must not move the worker backwards.
	reached, err := worker.PollState(before)
	if err != nil {
		t.Fatalf("worker poll failed: %v", err)
	}
	if !reached {
		t.Fatalf("expected worker to still report its ready state, got a state change")
	}
}
