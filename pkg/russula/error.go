package russula

import (
	"fmt"

	"github.com/toidiu/russula/pkg/russula/network"
)

// Kind classifies a RussulaError so callers can tell transient conditions
// apart from fatal ones without string-matching.
type Kind int

const (
	// NetworkBlocked is transient: the poll loop absorbs it and retries
	// on the next call.
	NetworkBlocked Kind = iota

	// NetworkFail is fatal I/O on an established stream.
	NetworkFail

	// NetworkConnectionRefused is a build-time dial exhaustion.
	NetworkConnectionRefused

	// BadMsg is frame-level corruption or an unknown token.
	BadMsg
)

func (k Kind) String() string {
	switch k {
	case NetworkBlocked:
		return "NetworkBlocked"
	case NetworkFail:
		return "NetworkFail"
	case NetworkConnectionRefused:
		return "NetworkConnectionRefused"
	case BadMsg:
		return "BadMsg"
	default:
		return "Unknown"
	}
}

// RussulaError is the error type this package uses for network and protocol
// failures, mirroring the teacher's convention of a flat error struct carrying a debug string
// rather than one Go type per failure kind.
type RussulaError struct {
	Kind Kind
	Dbg  string
}

func (e *RussulaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Dbg)
}

// IsFatal reports whether the runtime must abort the current poll/run on
// this error. Only NetworkBlocked is non-fatal; it is absorbed by the poll
// loop and retried on the next call.
func (e *RussulaError) IsFatal() bool {
	return e.Kind != NetworkBlocked
}

func errBlocked(dbg string) error {
	return &RussulaError{Kind: NetworkBlocked, Dbg: dbg}
}

func errNetworkFail(dbg string) error {
	return &RussulaError{Kind: NetworkFail, Dbg: dbg}
}

func errConnectionRefused(dbg string) error {
	return &RussulaError{Kind: NetworkConnectionRefused, Dbg: dbg}
}

func errBadMsg(dbg string) error {
	return &RussulaError{Kind: BadMsg, Dbg: dbg}
}

// wrapNetErr maps a pkg/russula/network.Error onto this package's RussulaError
// so the runtime only ever has one error type to classify. Any other error
// (including an existing *RussulaError from AwaitNext) passes through
// unchanged.
func wrapNetErr(err error) error {
	if err == nil {
		return nil
	}
	netErr, ok := err.(*network.Error)
	if !ok {
		return err
	}
	var kind Kind
	switch netErr.Kind {
	case network.Blocked:
		kind = NetworkBlocked
	case network.Fail:
		kind = NetworkFail
	case network.BadMsg:
		kind = BadMsg
	case network.Refused:
		kind = NetworkConnectionRefused
	default:
		kind = NetworkFail
	}
	return &RussulaError{Kind: kind, Dbg: netErr.Dbg}
}
