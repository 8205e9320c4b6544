// Package process wraps the three collaborator contracts Russula's worker
// roles need from the local OS (spec.md §6): spawning a benchmark child,
// probing whether it is still alive, and signalling it to stop.
//
// Spawning goes through os/exec, which is simply what starting a child
// process looks like in Go - there is no ecosystem replacement to reach
// for here (see DESIGN.md). Liveness and termination go through
// shirou/gopsutil instead of os.FindProcess/os.Process.Signal: gopsutil's
// process-table refresh matches the original implementation's use of the
// Rust sysinfo crate (spec.md §9 "Open question") and looks the PID up
// afresh on every call, so a reparented child is still observed correctly.
// Spawn reaps each child in the background once it exits, so an exited
// child leaves the process table instead of lingering as a zombie.
package process

import (
	"io"
	"os"
	"os/exec"

	gopsutil "github.com/shirou/gopsutil/process"
)

// Spec describes a child process to launch.
type Spec struct {
	Path   string
	Args   []string
	Env    []string
	Stdout io.Writer
}

// Spawn starts the child described by s and returns its PID. It must not
// block waiting for the child to exit (spec.md §6 "Process spawner").
func Spawn(s Spec) (uint32, error) {
	cmd := exec.Command(s.Path, s.Args...)
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	cmd.Stdout = s.Stdout
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	// Russula tracks the child purely by PID so it can later probe liveness
	// or signal it. The background Wait only reaps the child once it exits,
	// so that IsAlive then sees it gone from the process table.
	go cmd.Wait()
	return uint32(cmd.Process.Pid), nil
}

// IsAlive reports whether pid is still present in the process table.
// A process-table refresh is used rather than a cached handle so that a
// child reparented to init is still observed correctly.
func IsAlive(pid uint32) bool {
	proc, err := gopsutil.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := proc.IsRunning()
	return err == nil && running
}

// Terminate sends a termination signal to pid. It is idempotent: a PID
// that is already gone is treated as success (spec.md §4.5, §4.8).
func Terminate(pid uint32) error {
	proc, err := gopsutil.NewProcess(int32(pid))
	if err != nil {
		// Already gone: best-effort semantics treat this as success.
		return nil
	}
	if err := proc.Terminate(); err != nil {
		if !IsAlive(pid) {
			return nil
		}
		return err
	}
	return nil
}
