// Command russula-coordinator drives a Coordinator role (server or client)
// against one or more already-running Worker processes, following the
// run-till-ready / run-till-state-X sequence described in spec.md §5.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/definition"
	"github.com/toidiu/russula/pkg/russula/netbench"
)

func main() {
	var (
		role      = flag.String("role", "server", "coordinator role: server or client")
		peers     = flag.String("peers", "", "comma-separated worker addresses, e.g. 127.0.0.1:9000,127.0.0.1:9001")
		pollDelay = flag.Duration("poll-delay", 200*time.Millisecond, "delay between state polls")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *peers == "" {
		log.Fatal("russula-coordinator: -peers is required")
	}
	addrs := strings.Split(*peers, ",")

	logger := definition.NewDefaultLogger("russula-coordinator")
	logger.ToggleDebug(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		r       *russula.Russula
		err     error
		targets []russula.State
	)
	switch *role {
	case "server":
		r, err = runServerCoord(ctx, addrs, *pollDelay, logger)
		targets = []russula.State{netbench.SCRunPeer, netbench.SCKillPeer}
	case "client":
		r, err = runClientCoord(ctx, addrs, *pollDelay, logger)
		targets = []russula.State{netbench.CCRunPeer}
	default:
		log.Fatalf("russula-coordinator: unknown role %q, want server or client", *role)
	}
	if err != nil {
		log.Fatalf("russula-coordinator: build failed: %v", err)
	}
	defer r.Shutdown()

	logger.Infof("waiting for %d worker(s) to become ready", len(addrs))
	if err := r.RunTillReady(ctx); err != nil {
		log.Fatalf("russula-coordinator: run_till_ready failed: %v", err)
	}

	for _, target := range targets {
		logger.Infof("driving to %v", target)
		if err := r.RunTillState(ctx, target); err != nil {
			log.Fatalf("russula-coordinator: run_till_state failed: %v", err)
		}
	}

	logger.Infof("waiting for all workers to stop")
	for {
		done, err := r.PollDone()
		if err != nil {
			log.Fatalf("russula-coordinator: poll_done failed: %v", err)
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

func runServerCoord(ctx context.Context, addrs []string, pollDelay time.Duration, logger definition.Logger) (*russula.Russula, error) {
	b := russula.NewBuilder(russula.ServerCoord, addrs, func(addr string, log definition.Logger) russula.Protocol {
		return netbench.NewServerCoordProtocol(pollDelay, log)
	})
	b.PollDelay = pollDelay
	b.Logger = logger
	return b.Build(ctx)
}

func runClientCoord(ctx context.Context, addrs []string, pollDelay time.Duration, logger definition.Logger) (*russula.Russula, error) {
	b := russula.NewBuilder(russula.ClientCoord, addrs, func(addr string, log definition.Logger) russula.Protocol {
		return netbench.NewClientCoordProtocol(pollDelay, log)
	})
	b.PollDelay = pollDelay
	b.Logger = logger
	return b.Build(ctx)
}
