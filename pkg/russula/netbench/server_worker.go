package netbench

import (
	"context"
	"net"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/network"
	"github.com/toidiu/russula/pkg/russula/process"
)

// serverWorkerTag enumerates the server-side worker's state alphabet
// (spec.md §4.5): WaitCoordInit -> Ready -> Run -> RunningAwaitKill(pid) ->
// Killing(pid) -> Stopped -> Done. RunningAwaitKill and Killing carry a PID
// that is tracked locally only: the PID never crosses the wire, so the
// wire token and state equality for these two variants ignore it
// (spec.md "State tokens").
type serverWorkerTag int

const (
	swTagWaitCoordInit serverWorkerTag = iota
	swTagReady
	swTagRun
	swTagRunningAwaitKill
	swTagKilling
	swTagStopped
	swTagDone
)

const (
	serverWorkerRunningAwaitKillTag russula.Token = "RunningAwaitKill"
	serverWorkerKillingTag          russula.Token = "Killing"
)

// ServerWorkerState is the server-side worker's state value. pid is only
// meaningful for the RunningAwaitKill and Killing variants.
type ServerWorkerState struct {
	tag serverWorkerTag
	pid uint32
}

var (
	SWWaitCoordInit = ServerWorkerState{tag: swTagWaitCoordInit}
	SWReady         = ServerWorkerState{tag: swTagReady}
	SWRun           = ServerWorkerState{tag: swTagRun}
	SWStopped       = ServerWorkerState{tag: swTagStopped}
	SWDone          = ServerWorkerState{tag: swTagDone}
)

// SWRunningAwaitKill builds the RunningAwaitKill variant tracking pid
// locally.
func SWRunningAwaitKill(pid uint32) ServerWorkerState {
	return ServerWorkerState{tag: swTagRunningAwaitKill, pid: pid}
}

// SWKilling builds the Killing variant tracking pid locally.
func SWKilling(pid uint32) ServerWorkerState {
	return ServerWorkerState{tag: swTagKilling, pid: pid}
}

func (s ServerWorkerState) Tag() russula.Token {
	switch s.tag {
	case swTagWaitCoordInit:
		return "WaitCoordInit"
	case swTagReady:
		return "Ready"
	case swTagRun:
		return "Run"
	case swTagRunningAwaitKill:
		return serverWorkerRunningAwaitKillTag
	case swTagKilling:
		return serverWorkerKillingTag
	case swTagStopped:
		return "Stopped"
	case swTagDone:
		return "Done"
	default:
		return "Unknown"
	}
}

func (s ServerWorkerState) Step() russula.TransitionStep {
	switch s.tag {
	case swTagWaitCoordInit:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: SCCheckPeer.Tag()}
	case swTagReady:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: SCRunPeer.Tag()}
	case swTagRun:
		return russula.TransitionStep{Kind: russula.SelfDriven}
	case swTagRunningAwaitKill:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: SCKillPeer.Tag()}
	case swTagKilling:
		return russula.TransitionStep{Kind: russula.SelfDriven}
	case swTagStopped:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: SCDone.Tag()}
	case swTagDone:
		return russula.TransitionStep{Kind: russula.Finished}
	default:
		return russula.TransitionStep{Kind: russula.Finished}
	}
}

func (s ServerWorkerState) Next() russula.State {
	switch s.tag {
	case swTagWaitCoordInit:
		return SWReady
	case swTagReady:
		return SWRun
	case swTagRun:
		return SWRunningAwaitKill(s.pid)
	case swTagRunningAwaitKill:
		return SWKilling(s.pid)
	case swTagKilling:
		return SWStopped
	case swTagStopped:
		return SWDone
	default:
		return SWDone
	}
}

// Equal ignores pid: the PID is local tracking state, not part of the
// wire-visible identity of the state (spec.md "State tokens").
func (s ServerWorkerState) Equal(other russula.State) bool {
	return s.Tag() == other.Tag()
}

// ServerWorkerProtocol is the server-side Worker's state machine
// (spec.md §4.5).
type ServerWorkerProtocol struct {
	state     ServerWorkerState
	addr      string
	driver    Driver
	pollDelay time.Duration
	log       logger
}

// NewServerWorkerProtocol builds a fresh ServerWorkerProtocol listening on
// addr for the coordinator's connection.
func NewServerWorkerProtocol(addr string, driver Driver, pollDelay time.Duration, log logger) *ServerWorkerProtocol {
	return &ServerWorkerProtocol{state: SWWaitCoordInit, addr: addr, driver: driver, pollDelay: pollDelay, log: log}
}

func (p *ServerWorkerProtocol) Role() russula.Role { return russula.ServerWorker }

func (p *ServerWorkerProtocol) Name() string { return "server-worker" }

func (p *ServerWorkerProtocol) Connect(ctx context.Context, addr string) (net.Conn, error) {
	return network.ListenWorker(ctx, p.addr)
}

func (p *ServerWorkerProtocol) State() russula.State { return p.state }

func (p *ServerWorkerProtocol) SetState(s russula.State) { p.state = s.(ServerWorkerState) }

func (p *ServerWorkerProtocol) ReadyState() russula.State { return SWReady }

func (p *ServerWorkerProtocol) DoneState() russula.State { return SWDone }

func (p *ServerWorkerProtocol) PeerTokens() []russula.Token {
	return []russula.Token{SCCheckPeer.Tag(), SCReady.Tag(), SCRunPeer.Tag(), SCKillPeer.Tag(), SCDone.Tag()}
}

func (p *ServerWorkerProtocol) Act(ctx context.Context, codec *network.Codec) error {
	switch p.state.tag {
	case swTagWaitCoordInit:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = SWReady
			return russula.NotifyPeer(codec, p.state)
		}
	case swTagReady:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = SWRun
		}
	case swTagRun:
		pid, err := p.driver.spawn(p.Name(), []string{})
		if err != nil {
			return err
		}
		p.state = SWRunningAwaitKill(pid)
		return russula.NotifyPeer(codec, p.state)
	case swTagRunningAwaitKill:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			if err := process.Terminate(p.state.pid); err != nil {
				p.log.Warnf("server-worker: terminate pid %d: %v", p.state.pid, err)
			}
			p.state = SWKilling(p.state.pid)
		}
	case swTagKilling:
		if !process.IsAlive(p.state.pid) {
			p.state = SWStopped
			return russula.NotifyPeer(codec, p.state)
		}
	case swTagStopped:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = SWDone
			return russula.NotifyPeer(codec, p.state)
		}
	case swTagDone:
		return russula.NotifyPeer(codec, p.state)
	}
	return nil
}
