package netbench

import (
	"context"
	"net"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/network"
)

// ServerCoordState is the server-side coordinator's state alphabet
// (spec.md §4.4): CheckPeer -> Ready -> RunPeer -> KillPeer -> Done.
type ServerCoordState int

const (
	SCCheckPeer ServerCoordState = iota
	SCReady
	SCRunPeer
	SCKillPeer
	SCDone
)

func (s ServerCoordState) Tag() russula.Token {
	switch s {
	case SCCheckPeer:
		return "CheckPeer"
	case SCReady:
		return "Ready"
	case SCRunPeer:
		return "RunPeer"
	case SCKillPeer:
		return "KillPeer"
	case SCDone:
		return "Done"
	default:
		return "Unknown"
	}
}

func (s ServerCoordState) Step() russula.TransitionStep {
	switch s {
	case SCCheckPeer:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: SWReady.Tag()}
	case SCReady:
		return russula.TransitionStep{Kind: russula.UserDriven}
	case SCRunPeer:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: serverWorkerRunningAwaitKillTag}
	case SCKillPeer:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: SWStopped.Tag()}
	case SCDone:
		return russula.TransitionStep{Kind: russula.Finished}
	default:
		return russula.TransitionStep{Kind: russula.Finished}
	}
}

func (s ServerCoordState) Next() russula.State {
	switch s {
	case SCCheckPeer:
		return SCReady
	case SCReady:
		return SCRunPeer
	case SCRunPeer:
		return SCKillPeer
	case SCKillPeer:
		return SCDone
	default:
		return SCDone
	}
}

func (s ServerCoordState) Equal(other russula.State) bool {
	return s.Tag() == other.Tag()
}

// ServerCoordProtocol is the server-side Coordinator's per-link state
// machine (spec.md §4.4).
type ServerCoordProtocol struct {
	state     ServerCoordState
	pollDelay time.Duration
	log       logger
}

// NewServerCoordProtocol builds a fresh ServerCoordProtocol for one worker
// link. Pass this as the per-peer factory to russula.NewBuilder.
func NewServerCoordProtocol(pollDelay time.Duration, log logger) *ServerCoordProtocol {
	return &ServerCoordProtocol{state: SCCheckPeer, pollDelay: pollDelay, log: log}
}

func (p *ServerCoordProtocol) Role() russula.Role { return russula.ServerCoord }

func (p *ServerCoordProtocol) Name() string { return "server-coord" }

func (p *ServerCoordProtocol) Connect(ctx context.Context, addr string) (net.Conn, error) {
	return network.DialWorker(ctx, addr, network.DefaultDialRetries, p.pollDelay)
}

func (p *ServerCoordProtocol) State() russula.State { return p.state }

func (p *ServerCoordProtocol) SetState(s russula.State) { p.state = s.(ServerCoordState) }

func (p *ServerCoordProtocol) ReadyState() russula.State { return SCReady }

func (p *ServerCoordProtocol) DoneState() russula.State { return SCDone }

func (p *ServerCoordProtocol) PeerTokens() []russula.Token {
	return []russula.Token{
		SWWaitCoordInit.Tag(), SWReady.Tag(), SWRun.Tag(),
		serverWorkerRunningAwaitKillTag, serverWorkerKillingTag, SWStopped.Tag(), SWDone.Tag(),
	}
}

func (p *ServerCoordProtocol) Act(ctx context.Context, codec *network.Codec) error {
	switch p.state {
	case SCCheckPeer:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = SCReady
		}
	case SCReady:
		// UserDriven: PollState does not step a UserDriven state that is
		// itself the poll's target, so reaching this point means the caller
		// named a later target (spec.md §9 "UserDriven transitions"); the
		// consent check collapses to advancing straight to RunPeer, whose
		// own notify/await cycle runs on the next poll.
		p.state = SCRunPeer
	case SCRunPeer:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = SCKillPeer
		}
	case SCKillPeer:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = SCDone
			return russula.NotifyPeer(codec, p.state)
		}
	case SCDone:
		if err := russula.NotifyPeer(codec, p.state); err != nil {
			return err
		}
	}
	return nil
}
