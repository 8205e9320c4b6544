// Command russula-worker drives a Worker role (server or client) for one
// benchmark process, listening for its coordinator's connection and
// stepping its state machine through to Done (spec.md §4.5, §4.7).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/definition"
	"github.com/toidiu/russula/pkg/russula/netbench"
)

func main() {
	var (
		role       = flag.String("role", "server", "worker role: server or client")
		listenAddr = flag.String("listen", "127.0.0.1:9000", "address to listen on for the coordinator's connection")
		peerAddr   = flag.String("peer-addr", "", "upstream server address, for role=client")
		simulate   = flag.Bool("simulate", true, "run scripts/sim_netbench_*.sh instead of a real netbench driver")
		simScript  = flag.String("sim-script", "scripts/sim_netbench_server.sh", "simulation script path, used when -simulate")
		collector  = flag.String("collector", "", "path to the s2n-netbench collector binary, used when -simulate=false")
		driverPath = flag.String("driver", "", "path to the netbench driver binary, used when -simulate=false")
		scenario   = flag.String("scenario", "", "netbench scenario file, used when -simulate=false")
		output     = flag.String("output", "netbench-report.json", "path to capture the benchmark child's stdout")
		pollDelay  = flag.Duration("poll-delay", 200*time.Millisecond, "delay between state polls")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	logger := definition.NewDefaultLogger("russula-worker")
	logger.ToggleDebug(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver := netbench.Driver{
		CollectorPath: *collector,
		DriverPath:    *driverPath,
		Scenario:      *scenario,
		PeerAddr:      *peerAddr,
		Simulate:      *simulate,
		SimScript:     *simScript,
		OutputPath:    *output,
	}

	var (
		r   *russula.Russula
		err error
	)
	switch *role {
	case "server":
		b := russula.NewBuilder(russula.ServerWorker, []string{*listenAddr}, func(addr string, log definition.Logger) russula.Protocol {
			return netbench.NewServerWorkerProtocol(addr, driver, *pollDelay, log)
		})
		b.PollDelay = *pollDelay
		b.Logger = logger
		r, err = b.Build(ctx)
	case "client":
		b := russula.NewBuilder(russula.ClientWorker, []string{*listenAddr}, func(addr string, log definition.Logger) russula.Protocol {
			return netbench.NewClientWorkerProtocol(addr, driver, *pollDelay, log)
		})
		b.PollDelay = *pollDelay
		b.Logger = logger
		r, err = b.Build(ctx)
	default:
		log.Fatalf("russula-worker: unknown role %q, want server or client", *role)
	}
	if err != nil {
		log.Fatalf("russula-worker: build failed: %v", err)
	}
	defer r.Shutdown()

	logger.Infof("connected, running until coordinator reports done")
	done := false
	var doneState russula.State
	switch *role {
	case "server":
		doneState = netbench.SWDone
	case "client":
		doneState = netbench.CWDone
	}
	for !done {
		var err error
		done, err = r.PollState(doneState)
		if err != nil {
			log.Fatalf("russula-worker: poll_state failed: %v", err)
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*pollDelay):
		}
	}
	logger.Infof("done")
}
