// Package netbench implements Russula's four concrete role engines
// (spec.md §4.4-4.7): ServerCoordProtocol, ServerWorkerProtocol,
// ClientCoordProtocol, ClientWorkerProtocol.
package netbench

import (
	"fmt"
	"os"

	"github.com/toidiu/russula/pkg/russula/process"
)

// Driver describes the benchmark binaries a worker's Run state spawns.
// Both the live-benchmark path and the local-simulation path from
// original_source/src/russula/netbench/{server_worker,client_worker}.rs
// are kept: Simulate selects between them rather than the simulation
// path being dropped (SPEC_FULL.md §4.4-4.7 "Recovered feature").
type Driver struct {
	// CollectorPath/DriverPath/Scenario locate the real s2n-netbench
	// collector, the driver binary (server or client flavored), and the
	// scenario file, used when Simulate is false.
	CollectorPath string
	DriverPath    string
	Scenario      string

	// Port is the listening port passed to a server driver via the PORT
	// env var.
	Port uint16

	// PeerAddr is the upstream server address passed to a client driver
	// via the SERVER_0 env var.
	PeerAddr string

	// Simulate runs scripts/sim_netbench_{server,client}.sh instead of a
	// real driver binary, for local testing without the netbench toolkit
	// installed.
	Simulate bool

	// SimScript is the simulation shell script to run when Simulate is
	// true.
	SimScript string

	// OutputPath is where the child's stdout (the netbench JSON report) is
	// captured.
	OutputPath string
}

// spawn launches the configured driver, appending env on top of the
// process's own environment, and returns the child's PID.
func (d Driver) spawn(name string, env []string) (uint32, error) {
	out, err := os.Create(d.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to open output log %s: %w", name, d.OutputPath, err)
	}

	if d.Simulate {
		return process.Spawn(process.Spec{
			Path:   "sh",
			Args:   []string{d.SimScript, name},
			Stdout: out,
		})
	}

	env = append(env, fmt.Sprintf("PORT=%d", d.Port), fmt.Sprintf("SERVER_0=%s", d.PeerAddr))
	return process.Spawn(process.Spec{
		Path:   d.CollectorPath,
		Args:   []string{d.DriverPath, "--scenario", d.Scenario},
		Env:    env,
		Stdout: out,
	})
}

// logger is the minimal subset of definition.Logger role engines depend on.
type logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}
