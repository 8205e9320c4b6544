package network

import (
	"context"
	"fmt"
	"net"
	"time"

	plog "github.com/prometheus/common/log"
)

// DefaultDialRetries is the bounded retry budget for a coordinator's initial
// dial to a worker (spec.md §4.2).
const DefaultDialRetries = 3

// DialWorker connects to a worker's listen address, making at most retries
// attempts with delay between them. This mirrors the teacher's own
// transport-layer diagnostics convention of logging dial warnings through
// the package-level prometheus/common/log logger rather than a
// caller-supplied one (core/transport.go), since no per-instance Logger
// exists yet at dial time.
func DialWorker(ctx context.Context, addr string, retries int, delay time.Duration) (net.Conn, error) {
	var lastErr error
	attempts := retries
	for attempts > 0 {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		attempts--
		if attempts == 0 {
			break
		}
		plog.Warnf("failed to connect to %s, %d attempts left: %v", addr, attempts, err)
		select {
		case <-ctx.Done():
			return nil, refusedError(fmt.Sprintf("dial to %s cancelled: %v", addr, ctx.Err()))
		case <-time.After(delay):
		}
	}
	return nil, refusedError(fmt.Sprintf("failed to connect to %s after %d attempts: %v", addr, retries, lastErr))
}

// ListenWorker binds addr and accepts exactly one connection, then stops
// listening; the accepted stream is used for the entire run
// (spec.md §4.2).
func ListenWorker(ctx context.Context, addr string) (net.Conn, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, netFailError(fmt.Sprintf("failed to listen on %s: %v", addr, err))
	}
	defer listener.Close()

	plog.Infof("listening on %s", addr)
	conn, err := listener.Accept()
	if err != nil {
		return nil, netFailError(fmt.Sprintf("failed to accept connection on %s: %v", addr, err))
	}
	plog.Infof("accepted connection from %s on %s", conn.RemoteAddr(), addr)
	return conn, nil
}
