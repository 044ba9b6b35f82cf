// Package call keeps the state of a one-to-one call on top of the peer engine.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/logger"
)

var (
	ErrUnknownPeer = errors.New("unknown peer")
	ErrHungUp      = errors.New("call has been hung up")
)

// Engine is the negotiation side of a call.
type Engine interface {
	Capture(ctx context.Context) error
	Initiate(ctx context.Context, target api.Id) error
	AcceptIncoming(ctx context.Context, env *api.Envelope) error
	ApplyRemoteAnswer(env *api.Envelope) error
	ApplyRemoteCandidate(env *api.Envelope)
	Terminate() error
}

type Controller struct {
	engine Engine
	dir    *Directory
	log    *logger.Logger

	mu     sync.Mutex
	state  State
	peer   api.Id
	offer  *api.Envelope
	inCall bool
	// gen changes with each hang-up so the engine work done outside
	// the lock can tell that its call is gone.
	gen uint64

	onChange func(from, to State, peer api.Id)
}

func NewController(engine Engine, dir *Directory, log *logger.Logger) *Controller {
	return &Controller{engine: engine, dir: dir, log: log}
}

// OnChange sets a callback for state changes, it is called outside the lock.
func (c *Controller) OnChange(fn func(from, to State, peer api.Id)) { c.onChange = fn }

func (c *Controller) State() State { c.mu.Lock(); defer c.mu.Unlock(); return c.state }

// Peer returns the other side of the current call or the caller while ringing.
func (c *Controller) Peer() api.Id { c.mu.Lock(); defer c.mu.Unlock(); return c.peer }

// InCall is true when media of the other side flows or the call was accepted.
func (c *Controller) InCall() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.inCall }

// Start calls the target, it must be a known peer.
// The state is Calling while the offer is being made, so other offers
// are turned down and the answer is not lost.
func (c *Controller) Start(ctx context.Context, target api.Id) error {
	c.mu.Lock()
	from := c.state
	next, err := from.to(Calling)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.dir.Has(target) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnknownPeer, target)
	}
	c.state, c.peer = next, target
	gen := c.gen
	c.mu.Unlock()

	err = c.engine.Capture(ctx)
	if err == nil {
		err = c.engine.Initiate(ctx, target)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = c.engine.Terminate()
		return ErrHungUp
	}
	if err != nil {
		c.state, c.peer = from, ""
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	c.log.Info().Str("to", target.String()).Msg("Calling")
	c.changed(from, next, target)
	return nil
}

// HandleOffer rings on an incoming offer. Offers are ignored while busy.
func (c *Controller) HandleOffer(env *api.Envelope) bool {
	if env == nil {
		return false
	}
	c.mu.Lock()
	from := c.state
	next, err := from.to(Ringing)
	if err != nil {
		c.mu.Unlock()
		c.log.Info().Str("from", env.From.String()).Str("state", from.String()).Msg("Busy, the offer is ignored")
		return false
	}
	c.state, c.peer, c.offer = next, env.From, env
	c.mu.Unlock()

	c.log.Info().Str("from", env.From.String()).Msg("Incoming call")
	c.changed(from, next, env.From)
	return true
}

// Accept answers the offer we are ringing with.
// A bad offer leaves the call ringing.
func (c *Controller) Accept(ctx context.Context) error {
	c.mu.Lock()
	from := c.state
	if from != Ringing {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, from, Active)
	}
	next, _ := from.to(Active)
	peer, offer, gen := c.peer, c.offer, c.gen
	c.state, c.offer = next, nil
	c.mu.Unlock()

	err := c.engine.Capture(ctx)
	if err == nil {
		err = c.engine.AcceptIncoming(ctx, offer)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = c.engine.Terminate()
		return ErrHungUp
	}
	if err != nil {
		c.state, c.offer = from, offer
		c.mu.Unlock()
		return err
	}
	c.inCall = true
	c.mu.Unlock()

	c.log.Info().Str("with", peer.String()).Msg("Call has been accepted")
	c.changed(from, next, peer)
	return nil
}

// HandleAnswer passes the answer to the engine, a failed one ends the call.
func (c *Controller) HandleAnswer(env *api.Envelope) {
	c.mu.Lock()
	if c.state != Calling {
		c.mu.Unlock()
		c.log.Debug().Msg("Answer out of a call, skip")
		return
	}
	err := c.engine.ApplyRemoteAnswer(env)
	c.mu.Unlock()
	if err != nil {
		c.log.Error().Err(err).Msg("Answer fail")
		_ = c.HangUp()
	}
}

func (c *Controller) HandleCandidate(env *api.Envelope) { c.engine.ApplyRemoteCandidate(env) }

// TrackArrived marks the call as live, the caller side becomes active here.
func (c *Controller) TrackArrived(peer api.Id) {
	c.mu.Lock()
	if c.state == Idle || c.peer != peer {
		c.mu.Unlock()
		return
	}
	c.inCall = true
	from := c.state
	if from != Calling {
		c.mu.Unlock()
		return
	}
	c.state = Active
	c.mu.Unlock()

	c.log.Info().Str("with", peer.String()).Msg("Call is active")
	c.changed(from, Active, peer)
}

// PeerLeft forgets the peer. A call with it stays as is until hang-up.
func (c *Controller) PeerLeft(id api.Id) {
	c.dir.Remove(id)
	c.mu.Lock()
	ours := c.state != Idle && c.peer == id
	c.mu.Unlock()
	if ours {
		c.log.Warn().Str("peer", id.String()).Msg("The other side has left, hang up to start over")
	}
}

// HangUp ends whatever is going on and goes back to Idle.
// The state is always Idle after the call, the error is only informative.
func (c *Controller) HangUp() error {
	c.mu.Lock()
	from, peer := c.state, c.peer
	err := c.engine.Terminate()
	c.state, c.peer, c.offer, c.inCall = Idle, "", nil, false
	c.gen++
	c.mu.Unlock()

	if from != Idle {
		c.log.Info().Str("with", peer.String()).Msg("Hang up")
		c.changed(from, Idle, peer)
	}
	return err
}

func (c *Controller) changed(from, to State, peer api.Id) {
	if c.onChange != nil {
		c.onChange(from, to, peer)
	}
}
