package russula

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/toidiu/russula/pkg/russula/network"
)

// fakeState is a minimal two-value State used to unit test Russula's
// generic poll loop without depending on netbench's concrete roles.
type fakeState int

const (
	fakeStart fakeState = iota
	fakeDone
)

func (s fakeState) Tag() Token {
	if s == fakeDone {
		return "Done"
	}
	return "Start"
}

func (s fakeState) Step() TransitionStep {
	if s == fakeStart {
		return TransitionStep{Kind: SelfDriven}
	}
	return TransitionStep{Kind: Finished}
}

func (s fakeState) Next() State {
	if s == fakeStart {
		return fakeDone
	}
	return fakeDone
}

func (s fakeState) Equal(other State) bool {
	return s.Tag() == other.Tag()
}

// fakeProtocol advances from fakeStart to fakeDone on its first Act call,
// regardless of what arrives on the wire.
type fakeProtocol struct {
	state fakeState
}

func (p *fakeProtocol) Role() Role   { return ServerCoord }
func (p *fakeProtocol) Name() string { return "fake" }
func (p *fakeProtocol) Connect(ctx context.Context, addr string) (net.Conn, error) {
	conn, _ := net.Pipe()
	return conn, nil
}
func (p *fakeProtocol) State() State      { return p.state }
func (p *fakeProtocol) SetState(s State)  { p.state = s.(fakeState) }
func (p *fakeProtocol) ReadyState() State { return fakeDone }
func (p *fakeProtocol) DoneState() State  { return fakeDone }
func (p *fakeProtocol) PeerTokens() []Token {
	return []Token{"Start", "Done"}
}
func (p *fakeProtocol) Act(ctx context.Context, codec *network.Codec) error {
	p.state = fakeDone
	return nil
}

func newFakeRussula() *Russula {
	a, _ := net.Pipe()
	return &Russula{
		instances: []*instance{
			{protocol: &fakeProtocol{state: fakeStart}, addr: "fake", codec: network.NewCodec(a, "fake")},
		},
		pollDelay: time.Millisecond,
	}
}

func TestPollStateReachesTarget(t *testing.T) {
	r := newFakeRussula()
	reached, err := r.PollState(fakeDone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reached {
		t.Fatal("expected target to be reached after one Act call")
	}
}

func TestRunTillStateReturnsOnceReached(t *testing.T) {
	r := newFakeRussula()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.RunTillState(ctx, fakeDone); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCurrentStateReflectsInstance(t *testing.T) {
	r := newFakeRussula()
	if r.CurrentState().Tag() != fakeStart.Tag() {
		t.Fatalf("expected initial state %v, got %v", fakeStart.Tag(), r.CurrentState().Tag())
	}
	r.PollState(fakeDone)
	if r.CurrentState().Tag() != fakeDone.Tag() {
		t.Fatalf("expected state %v after poll, got %v", fakeDone.Tag(), r.CurrentState().Tag())
	}
}
