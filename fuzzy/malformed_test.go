// Package fuzzy exercises Russula's link against malformed and adversarial
// input rather than a cooperative peer, mirroring the teacher's own fuzzy
// package (commit_test.go) driving its protocol with sequences of commands
// instead of controlled unit input.
package fuzzy

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/toidiu/russula/pkg/russula/network"
)

// pipeConn returns two ends of an in-memory full-duplex connection, standing
// in for a TCP socket so a test can write raw, possibly malformed bytes onto
// one end and read through the Codec on the other.
func pipeConn(t *testing.T) (a, b net.Conn) {
	t.Helper()
	a, b = net.Pipe()
	return a, b
}

// TestMalformedFrameIsBadMsg sends a length prefix whose payload does not
// decode to valid JSON; the receiver must report BadMsg rather than panic
// or silently desynchronize (spec.md §8 scenario 5, §4.1).
func TestMalformedFrameIsBadMsg(t *testing.T) {
	a, b := pipeConn(t)
	defer a.Close()
	defer b.Close()

	codec := network.NewCodec(b, "server-coord")

	garbage := []byte("{not valid json")
	go func() {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(garbage)))
		a.Write(lenBuf[:])
		a.Write(garbage)
	}()

	_, err := codec.Recv()
	if err == nil {
		t.Fatal("expected a malformed frame to be rejected")
	}
	netErr, ok := err.(*network.Error)
	if !ok {
		t.Fatalf("expected a *network.Error, got %T: %v", err, err)
	}
	if netErr.Kind != network.BadMsg {
		t.Fatalf("expected BadMsg, got %v", netErr.Kind)
	}
}

// TestOversizedFrameIsRejectedBeforeSend confirms Send refuses to put a
// frame larger than the 16-bit length prefix can represent onto the wire,
// rather than silently truncating it (spec.md §4.1).
func TestOversizedFrameIsRejectedBeforeSend(t *testing.T) {
	a, b := pipeConn(t)
	defer a.Close()
	defer b.Close()

	codec := network.NewCodec(b, "server-coord")

	huge := make([]byte, 1<<16)
	for i := range huge {
		huge[i] = 'a'
	}
	err := codec.Send(string(huge))
	if err == nil {
		t.Fatal("expected an oversized token to be rejected")
	}
}

// TestNoDataIsBlockedNotFatal confirms that a peer which simply hasn't sent
// anything yet is reported as the non-fatal NetworkBlocked, not BadMsg or
// NetworkFail (spec.md §4.1, §4.3).
func TestNoDataIsBlockedNotFatal(t *testing.T) {
	a, b := pipeConn(t)
	defer a.Close()
	defer b.Close()

	codec := network.NewCodec(b, "server-coord")

	start := time.Now()
	_, err := codec.Recv()
	if err == nil {
		t.Fatal("expected Recv on an idle link to report blocked")
	}
	if time.Since(start) <= 0 {
		t.Fatal("expected Recv to wait at least briefly before reporting blocked")
	}
	netErr, ok := err.(*network.Error)
	if !ok {
		t.Fatalf("expected a *network.Error, got %T: %v", err, err)
	}
	if netErr.Kind != network.Blocked {
		t.Fatalf("expected NetworkBlocked, got %v", netErr.Kind)
	}
}
