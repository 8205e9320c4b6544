// Package russula implements a replicated, point-to-point coordination
// protocol for orchestrating distributed benchmark runs: one Coordinator
// process drives N Worker processes over independent TCP links, stepping
// each peer's state machine forward until every link reaches a caller-named
// target state (spec.md §2-§5). The four concrete role state machines live
// in the netbench subpackage; this package owns the generic runtime loop
// that drives any Protocol, mirroring the split the teacher draws between
// its generic Unity driver (protocol.go) and per-role RPC handling
// (core/peer.go).
package russula

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/toidiu/russula/pkg/russula/definition"
	"github.com/toidiu/russula/pkg/russula/network"
)

// instance is one coordinator-worker link: a Protocol state machine plus
// the codec wrapping its connection. An instance is owned exclusively by
// the Russula that polls it; it is never shared across goroutines
// concurrently (spec.md §5 "Shared resource policy").
type instance struct {
	protocol Protocol
	addr     string
	codec    *network.Codec
	log      definition.Logger
}

// Russula drives a set of per-link Protocol instances for one role,
// stepping every link forward once per PollState call until it reaches a
// target state (spec.md §5).
type Russula struct {
	instances []*instance
	pollDelay time.Duration
}

// ProtocolFactory builds a fresh Protocol for one peer link, given that
// peer's address and a named logger.
type ProtocolFactory func(addr string, log definition.Logger) Protocol

// RussulaBuilder assembles a Russula driver for one role talking to one or
// more peer addresses, mirroring the teacher's BaseConfiguration/
// ClusterConfiguration split between static role configuration and the
// set of peers (protocol.go, core/peer.go).
type RussulaBuilder struct {
	Role      Role
	Addrs     []string
	Factory   ProtocolFactory
	PollDelay time.Duration
	Logger    definition.Logger
}

// NewBuilder returns a RussulaBuilder with Russula's default poll delay and
// a DefaultLogger tagged with role's name.
func NewBuilder(role Role, addrs []string, factory ProtocolFactory) *RussulaBuilder {
	return &RussulaBuilder{
		Role:      role,
		Addrs:     addrs,
		Factory:   factory,
		PollDelay: 200 * time.Millisecond,
		Logger:    definition.NewDefaultLogger(role.String()),
	}
}

// Build establishes every peer link (dialing or listening per the role, see
// Protocol.Connect) and returns a Russula ready to be polled. A failure on
// any one link aborts the whole build: partially connected clusters are not
// a supported state (spec.md §4.2).
func (b *RussulaBuilder) Build(ctx context.Context) (*Russula, error) {
	if len(b.Addrs) == 0 {
		return nil, fmt.Errorf("russula: %s requires at least one peer address", b.Role)
	}

	instances := make([]*instance, 0, len(b.Addrs))
	for i, addr := range b.Addrs {
		name := fmt.Sprintf("%s-%d", b.Role, i)
		log := definition.NewDefaultLogger(name)
		proto := b.Factory(addr, log)

		conn, err := proto.Connect(ctx, addr)
		if err != nil {
			return nil, wrapNetErr(err)
		}

		instances = append(instances, &instance{
			protocol: proto,
			addr:     addr,
			codec:    network.NewCodec(conn, b.Role.String()),
			log:      log,
		})
	}

	return &Russula{instances: instances, pollDelay: b.PollDelay}, nil
}

// PollState steps every link's protocol forward exactly once and reports
// whether all of them have reached target (spec.md §5 "poll_state"). A link
// whose current state is UserDriven and equal to target is not stepped. A
// NetworkBlocked error on any one link is absorbed (that link simply made
// no progress this poll); any other error aborts immediately.
func (r *Russula) PollState(target State) (bool, error) {
	allReached := true
	for _, inst := range r.instances {
		// A UserDriven state advances only when the caller names a later
		// target, so a link parked at the target in such a state is left
		// alone.
		if s := inst.protocol.State(); s.Step().Kind == UserDriven && s.Equal(target) {
			continue
		}
		err := inst.protocol.Act(context.Background(), inst.codec)
		if err != nil {
			wrapped := wrapNetErr(err)
			if rerr, ok := wrapped.(*RussulaError); ok && rerr.Kind == NetworkBlocked {
				inst.log.Debugf("blocked: %v", rerr)
				allReached = false
				continue
			}
			return false, wrapped
		}
		if !inst.protocol.State().Equal(target) {
			allReached = false
		}
	}
	return allReached, nil
}

// RunTillState polls every link until all of them report target, sleeping
// pollDelay between polls (spec.md §5 "run_till_state").
func (r *Russula) RunTillState(ctx context.Context, target State) error {
	for {
		reached, err := r.PollState(target)
		if err != nil {
			return err
		}
		if reached {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollDelay):
		}
	}
}

// RunTillReady blocks until every link's protocol reaches its role's
// ReadyState.
func (r *Russula) RunTillReady(ctx context.Context) error {
	if len(r.instances) == 0 {
		return nil
	}
	return r.RunTillState(ctx, r.instances[0].protocol.ReadyState())
}

// PollDone steps every link forward once and reports whether all of them
// have reached their role's DoneState.
func (r *Russula) PollDone() (bool, error) {
	if len(r.instances) == 0 {
		return true, nil
	}
	return r.PollState(r.instances[0].protocol.DoneState())
}

// CurrentState returns the first link's current local state. Every link
// driven by one Russula shares the same role and therefore the same state
// alphabet, so any one of them is representative.
func (r *Russula) CurrentState() State {
	if len(r.instances) == 0 {
		return nil
	}
	return r.instances[0].protocol.State()
}

// Shutdown closes every link's underlying connection. Closing the
// connection is Russula's only teardown signal (spec.md §3 "Lifecycle").
func (r *Russula) Shutdown() {
	var wg sync.WaitGroup
	for _, inst := range r.instances {
		wg.Add(1)
		go func(i *instance) {
			defer wg.Done()
			if err := i.codec.Close(); err != nil {
				i.log.Warnf("error closing connection to %s: %v", i.addr, err)
			}
		}(inst)
	}
	wg.Wait()
}
