package russula

// Role identifies which of the four concrete state machines a Protocol
// implements. It determines the state alphabet, the next-state function,
// the transition-step function, and the per-state action (spec.md §3).
type Role int

const (
	ServerCoord Role = iota
	ServerWorker
	ClientCoord
	ClientWorker
)

func (r Role) String() string {
	switch r {
	case ServerCoord:
		return "server-coord"
	case ServerWorker:
		return "server-worker"
	case ClientCoord:
		return "client-coord"
	case ClientWorker:
		return "client-worker"
	default:
		return "unknown-role"
	}
}

// Peer returns the role on the other end of this role's single link.
func (r Role) Peer() Role {
	switch r {
	case ServerCoord:
		return ServerWorker
	case ServerWorker:
		return ServerCoord
	case ClientCoord:
		return ClientWorker
	case ClientWorker:
		return ClientCoord
	default:
		return r
	}
}

// Token is the wire form of a state: the tag name of the variant, and
// nothing else. A PID attached to a state (Running, Killing,
// RunningAwaitKill, RunningAwaitComplete) is a local-only field and is
// never part of a Token - spec.md §3 invariant 6 and §9 "Tokens with hidden
// fields".
type Token string

// StepKind is one of the four transition-gating kinds a state can carry
// (spec.md §3 "Transition step").
type StepKind int

const (
	// SelfDriven: the runtime advances to Next() without external input.
	SelfDriven StepKind = iota

	// UserDriven: the runtime does not advance on its own; only an
	// explicit call to RunTillState naming a later state causes progress.
	UserDriven

	// AwaitNext: the runtime advances once a message bearing Expect
	// arrives from the peer.
	AwaitNext

	// Finished: terminal; Next() loops to itself.
	Finished
)

// TransitionStep is attached to every state (spec.md §3).
type TransitionStep struct {
	Kind Kind
	// Expect is only meaningful when Kind == AwaitNext: the peer token
	// that causes this state to advance to Next().
	Expect Token
}

// Kind is an alias kept for readability at call sites (TransitionStep{Kind: ...}).
type Kind = StepKind

// State is implemented by each role's concrete state type
// (ServerCoordState, ServerWorkerState, ClientCoordState, ClientWorkerState). Implementations are small value types so that copying
// a State around (e.g. storing the last-observed peer token) never aliases
// mutable data.
type State interface {
	// Tag is this state's wire form (spec.md §3: PID-excluding, variant
	// name only).
	Tag() Token

	// Step describes how this state advances.
	Step() TransitionStep

	// Next returns the state reached once Step is satisfied. For the
	// terminal state, Next returns itself (spec.md §3 invariant 4).
	Next() State

	// Equal compares wire identity: true iff the Tag strings match.
	// PID-carrying variants are equal regardless of their PID (spec.md §3).
	Equal(other State) bool
}
