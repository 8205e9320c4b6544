package netbench

import (
	"context"
	"net"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/network"
)

// ClientCoordState is the client-side coordinator's state alphabet
// (spec.md §4.6): CheckPeer -> Ready -> RunPeer -> Done. Unlike the
// server-side coordinator, there is no KillPeer: the client worker's
// benchmark run is expected to complete on its own rather than being
// signalled to stop (spec.md §4.6).
type ClientCoordState int

const (
	CCCheckPeer ClientCoordState = iota
	CCReady
	CCRunPeer
	CCDone
)

func (s ClientCoordState) Tag() russula.Token {
	switch s {
	case CCCheckPeer:
		return "CheckPeer"
	case CCReady:
		return "Ready"
	case CCRunPeer:
		return "RunPeer"
	case CCDone:
		return "Done"
	default:
		return "Unknown"
	}
}

func (s ClientCoordState) Step() russula.TransitionStep {
	switch s {
	case CCCheckPeer:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: CWReady.Tag()}
	case CCReady:
		return russula.TransitionStep{Kind: russula.UserDriven}
	case CCRunPeer:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: CWStopped.Tag()}
	case CCDone:
		return russula.TransitionStep{Kind: russula.Finished}
	default:
		return russula.TransitionStep{Kind: russula.Finished}
	}
}

func (s ClientCoordState) Next() russula.State {
	switch s {
	case CCCheckPeer:
		return CCReady
	case CCReady:
		return CCRunPeer
	case CCRunPeer:
		return CCDone
	default:
		return CCDone
	}
}

func (s ClientCoordState) Equal(other russula.State) bool {
	return s.Tag() == other.Tag()
}

// ClientCoordProtocol is the client-side Coordinator's per-link state
// machine (spec.md §4.6).
type ClientCoordProtocol struct {
	state     ClientCoordState
	pollDelay time.Duration
	log       logger
}

// NewClientCoordProtocol builds a fresh ClientCoordProtocol for one worker
// link.
func NewClientCoordProtocol(pollDelay time.Duration, log logger) *ClientCoordProtocol {
	return &ClientCoordProtocol{state: CCCheckPeer, pollDelay: pollDelay, log: log}
}

func (p *ClientCoordProtocol) Role() russula.Role { return russula.ClientCoord }

func (p *ClientCoordProtocol) Name() string { return "client-coord" }

func (p *ClientCoordProtocol) Connect(ctx context.Context, addr string) (net.Conn, error) {
	return network.DialWorker(ctx, addr, network.DefaultDialRetries, p.pollDelay)
}

func (p *ClientCoordProtocol) State() russula.State { return p.state }

func (p *ClientCoordProtocol) SetState(s russula.State) { p.state = s.(ClientCoordState) }

func (p *ClientCoordProtocol) ReadyState() russula.State { return CCReady }

func (p *ClientCoordProtocol) DoneState() russula.State { return CCDone }

func (p *ClientCoordProtocol) PeerTokens() []russula.Token {
	return []russula.Token{
		CWWaitCoordInit.Tag(), CWReady.Tag(), CWRun.Tag(),
		clientWorkerRunningTag, clientWorkerRunningAwaitCompleteTag, CWStopped.Tag(), CWDone.Tag(),
	}
}

func (p *ClientCoordProtocol) Act(ctx context.Context, codec *network.Codec) error {
	switch p.state {
	case CCCheckPeer:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = CCReady
		}
	case CCReady:
		// UserDriven: PollState does not step a UserDriven state that is
		// itself the poll's target, so reaching this point means the caller
		// named a later target (spec.md §9 "UserDriven transitions"); the
		// consent check collapses to advancing straight to RunPeer, whose
		// own notify/await cycle runs on the next poll.
		p.state = CCRunPeer
	case CCRunPeer:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = CCDone
			return russula.NotifyPeer(codec, p.state)
		}
	case CCDone:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
	}
	return nil
}
