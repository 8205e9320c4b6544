package process

import (
	"os"
	"testing"
	"time"
)

// TestSpawnAndTerminate spawns a short-lived child, confirms IsAlive sees it
// running, then terminates it and confirms IsAlive converges to false.
func TestSpawnAndTerminate(t *testing.T) {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("failed opening %s: %v", os.DevNull, err)
	}
	defer devNull.Close()

	pid, err := Spawn(Spec{Path: "sleep", Args: []string{"30"}, Stdout: devNull})
	if err != nil {
		t.Fatalf("failed spawning child: %v", err)
	}

	if !IsAlive(pid) {
		t.Fatalf("expected pid %d to be alive immediately after spawn", pid)
	}

	if err := Terminate(pid); err != nil {
		t.Fatalf("failed terminating pid %d: %v", pid, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for IsAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if IsAlive(pid) {
		t.Fatalf("expected pid %d to be gone after Terminate", pid)
	}
}

// TestTerminateAlreadyGoneIsIdempotent confirms terminating a PID that does
// not exist is reported as success rather than an error (spec.md §4.5,
// §4.8).
func TestTerminateAlreadyGoneIsIdempotent(t *testing.T) {
	if err := Terminate(1 << 30); err != nil {
		t.Fatalf("expected terminating an already-gone pid to succeed, got: %v", err)
	}
}
