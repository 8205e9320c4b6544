package russula

import (
	"context"
	"net"

	"github.com/toidiu/russula/pkg/russula/network"
)

// Protocol is one role's concrete state machine for a single coordinator-worker
// link. The generic runtime in russula.go drives a Protocol purely through
// this interface, never touching role-specific fields - the same separation
// the teacher draws between its generic Unity driver and the per-role RPC
// handling in protocol.go.
//
// A Protocol value is owned exclusively by the Instance that polls it
// (spec.md §5 "Shared resource policy"); the runtime never shares one
// Protocol across two links.
type Protocol interface {
	// Role this protocol implements.
	Role() Role

	// Name is used only for logging, e.g. "server-worker".
	Name() string

	// Connect establishes this link's transport. A coordinator dials addr,
	// making up to network.DefaultDialRetries attempts (spec.md §4.2); a
	// worker binds its listen address and accepts exactly one connection,
	// without retrying. RussulaBuilder.Build calls Connect once per link.
	Connect(ctx context.Context, addr string) (net.Conn, error)

	// State returns the current local state.
	State() State

	// SetState overwrites the current local state. The runtime in
	// russula.go does not call it; role code advances its own state
	// inside Act.
	SetState(State)

	// ReadyState is the role's designated "ready" checkpoint, used by
	// RunTillReady.
	ReadyState() State

	// DoneState is the role's terminal state, used by PollDone.
	DoneState() State

	// PeerTokens is the full alphabet of the peer role, used to classify an
	// unrecognized inbound tag as BadMsg rather than silently ignoring it.
	PeerTokens() []Token

	// Act performs State()'s side effects for one poll: some combination of
	// notify_peer, await_next, and a local action (spawn/kill/probe), as
	// fixed by the role for this state (spec.md §4.3). It advances the
	// protocol's own state when the state's step is satisfied.
	Act(ctx context.Context, codec *network.Codec) error
}

// NotifyPeer sends the current state's token on the link. Used by role Act
// implementations when their state's action includes a notify
// (spec.md §4.3 "notify_peer").
func NotifyPeer(codec *network.Codec, s State) error {
	return codec.Send(string(s.Tag()))
}

// AwaitNext receives one frame and validates it decodes to a token of the
// peer's alphabet. NetworkBlocked and NetworkFail propagate unchanged; an
// unrecognized tag is reported as BadMsg (spec.md §4.1, §4.3 "await_next").
func AwaitNext(codec *network.Codec, peerTokens []Token) (Token, error) {
	tag, err := codec.Recv()
	if err != nil {
		return "", err
	}
	received := Token(tag)
	for _, valid := range peerTokens {
		if valid == received {
			return received, nil
		}
	}
	return "", errBadMsg("received a token not in the peer's alphabet: " + tag)
}
