package netbench

import (
	"context"
	"net"
	"time"

	"github.com/toidiu/russula/pkg/russula"
	"github.com/toidiu/russula/pkg/russula/network"
	"github.com/toidiu/russula/pkg/russula/process"
)

// clientWorkerTag enumerates the client-side worker's state alphabet
// (spec.md §4.7): WaitCoordInit -> Ready -> Run -> Running(pid) ->
// RunningAwaitComplete(pid) -> Stopped -> Done. Unlike the server-side
// worker, nothing signals this benchmark run to stop: it is polled until
// the child process exits on its own. The PID carried by Running and
// RunningAwaitComplete is local tracking state only, so it is excluded
// from the wire token and from state equality, matching ServerWorkerState.
type clientWorkerTag int

const (
	cwTagWaitCoordInit clientWorkerTag = iota
	cwTagReady
	cwTagRun
	cwTagRunning
	cwTagRunningAwaitComplete
	cwTagStopped
	cwTagDone
)

const (
	clientWorkerRunningTag              russula.Token = "Running"
	clientWorkerRunningAwaitCompleteTag russula.Token = "RunningAwaitComplete"
)

// ClientWorkerState is the client-side worker's state value. pid is only
// meaningful for the Running and RunningAwaitComplete variants.
type ClientWorkerState struct {
	tag clientWorkerTag
	pid uint32
}

var (
	CWWaitCoordInit = ClientWorkerState{tag: cwTagWaitCoordInit}
	CWReady         = ClientWorkerState{tag: cwTagReady}
	CWRun           = ClientWorkerState{tag: cwTagRun}
	CWStopped       = ClientWorkerState{tag: cwTagStopped}
	CWDone          = ClientWorkerState{tag: cwTagDone}
)

// CWRunning builds the Running variant tracking pid locally.
func CWRunning(pid uint32) ClientWorkerState {
	return ClientWorkerState{tag: cwTagRunning, pid: pid}
}

// CWRunningAwaitComplete builds the RunningAwaitComplete variant tracking
// pid locally.
func CWRunningAwaitComplete(pid uint32) ClientWorkerState {
	return ClientWorkerState{tag: cwTagRunningAwaitComplete, pid: pid}
}

func (s ClientWorkerState) Tag() russula.Token {
	switch s.tag {
	case cwTagWaitCoordInit:
		return "WaitCoordInit"
	case cwTagReady:
		return "Ready"
	case cwTagRun:
		return "Run"
	case cwTagRunning:
		return clientWorkerRunningTag
	case cwTagRunningAwaitComplete:
		return clientWorkerRunningAwaitCompleteTag
	case cwTagStopped:
		return "Stopped"
	case cwTagDone:
		return "Done"
	default:
		return "Unknown"
	}
}

func (s ClientWorkerState) Step() russula.TransitionStep {
	switch s.tag {
	case cwTagWaitCoordInit:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: CCCheckPeer.Tag()}
	case cwTagReady:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: CCRunPeer.Tag()}
	case cwTagRun:
		return russula.TransitionStep{Kind: russula.SelfDriven}
	case cwTagRunning:
		return russula.TransitionStep{Kind: russula.SelfDriven}
	case cwTagRunningAwaitComplete:
		return russula.TransitionStep{Kind: russula.SelfDriven}
	case cwTagStopped:
		return russula.TransitionStep{Kind: russula.AwaitNext, Expect: CCDone.Tag()}
	case cwTagDone:
		return russula.TransitionStep{Kind: russula.Finished}
	default:
		return russula.TransitionStep{Kind: russula.Finished}
	}
}

func (s ClientWorkerState) Next() russula.State {
	switch s.tag {
	case cwTagWaitCoordInit:
		return CWReady
	case cwTagReady:
		return CWRun
	case cwTagRun:
		return CWRunning(s.pid)
	case cwTagRunning:
		return CWRunningAwaitComplete(s.pid)
	case cwTagRunningAwaitComplete:
		return CWStopped
	case cwTagStopped:
		return CWDone
	default:
		return CWDone
	}
}

// Equal ignores pid: the PID is local tracking state, not part of the
// wire-visible identity of the state (spec.md "State tokens").
func (s ClientWorkerState) Equal(other russula.State) bool {
	return s.Tag() == other.Tag()
}

// ClientWorkerProtocol is the client-side Worker's state machine
// (spec.md §4.7).
type ClientWorkerProtocol struct {
	state     ClientWorkerState
	addr      string
	driver    Driver
	pollDelay time.Duration
	log       logger
}

// NewClientWorkerProtocol builds a fresh ClientWorkerProtocol listening on
// addr for the coordinator's connection.
func NewClientWorkerProtocol(addr string, driver Driver, pollDelay time.Duration, log logger) *ClientWorkerProtocol {
	return &ClientWorkerProtocol{state: CWWaitCoordInit, addr: addr, driver: driver, pollDelay: pollDelay, log: log}
}

func (p *ClientWorkerProtocol) Role() russula.Role { return russula.ClientWorker }

func (p *ClientWorkerProtocol) Name() string { return "client-worker" }

func (p *ClientWorkerProtocol) Connect(ctx context.Context, addr string) (net.Conn, error) {
	return network.ListenWorker(ctx, p.addr)
}

func (p *ClientWorkerProtocol) State() russula.State { return p.state }

func (p *ClientWorkerProtocol) SetState(s russula.State) { p.state = s.(ClientWorkerState) }

func (p *ClientWorkerProtocol) ReadyState() russula.State { return CWReady }

func (p *ClientWorkerProtocol) DoneState() russula.State { return CWDone }

func (p *ClientWorkerProtocol) PeerTokens() []russula.Token {
	return []russula.Token{CCCheckPeer.Tag(), CCReady.Tag(), CCRunPeer.Tag(), CCDone.Tag()}
}

func (p *ClientWorkerProtocol) Act(ctx context.Context, codec *network.Codec) error {
	switch p.state.tag {
	case cwTagWaitCoordInit:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = CWReady
			return russula.NotifyPeer(codec, p.state)
		}
	case cwTagReady:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = CWRun
		}
	case cwTagRun:
		pid, err := p.driver.spawn(p.Name(), []string{})
		if err != nil {
			return err
		}
		p.state = CWRunning(pid)
		return russula.NotifyPeer(codec, p.state)
	case cwTagRunning:
		p.state = CWRunningAwaitComplete(p.state.pid)
	case cwTagRunningAwaitComplete:
		if !process.IsAlive(p.state.pid) {
			p.state = CWStopped
			return russula.NotifyPeer(codec, p.state)
		}
	case cwTagStopped:
		tag, err := russula.AwaitNext(codec, p.PeerTokens())
		if err != nil {
			return err
		}
		if tag == p.state.Step().Expect {
			p.state = CWDone
			return russula.NotifyPeer(codec, p.state)
		}
	case cwTagDone:
		return russula.NotifyPeer(codec, p.state)
	}
	return nil
}
