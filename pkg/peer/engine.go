// Package peer drives a single WebRTC peer connection through the offer/answer
// exchange over the signaling server, with trickle ICE both ways.
package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/pion/webrtc/v3"
)

var (
	ErrNoLocalMedia   = errors.New("no local media")
	ErrMalformedOffer = errors.New("malformed offer")
)

// Signaler sends messages to the signaling server, it must not block.
type Signaler interface {
	Send(e api.Envelope) error
}

// Engine owns at most one session at a time.
// Its methods are serialized, transport callbacks never take the engine lock.
type Engine struct {
	factory TransportFactory
	media   MediaSource
	out     Signaler
	log     *logger.Logger

	mu      sync.Mutex
	local   *LocalStream
	session *session
	remote  RemoteStream
	dropped atomic.Int64

	onTrack func(peer api.Id, track Track)
	onState func(peer api.Id, state webrtc.PeerConnectionState)
}

func NewEngine(factory TransportFactory, media MediaSource, out Signaler, log *logger.Logger) *Engine {
	return &Engine{factory: factory, media: media, out: out, log: log}
}

// OnTrack sets a callback for each new remote track, set it before any call.
func (e *Engine) OnTrack(fn func(peer api.Id, track Track)) { e.onTrack = fn }

// OnState sets a callback for connection state changes, set it before any call.
func (e *Engine) OnState(fn func(peer api.Id, state webrtc.PeerConnectionState)) { e.onState = fn }

// Capture gets local media if there is none yet.
func (e *Engine) Capture(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local != nil {
		return nil
	}
	if e.media == nil {
		return ErrNoLocalMedia
	}
	local, err := e.media.Capture(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoLocalMedia, err)
	}
	e.local = local
	return nil
}

func (e *Engine) HasMedia() bool { e.mu.Lock(); defer e.mu.Unlock(); return e.local != nil }

// Peer returns the id of the current session peer or empty.
func (e *Engine) Peer() api.Id {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.peer
}

func (e *Engine) Remote() *RemoteStream { return &e.remote }

// Dropped is the number of remote candidates that had no session to go to.
func (e *Engine) Dropped() int64 { return e.dropped.Load() }

// Initiate starts a new session with an offer to the target.
// Local media must be captured first.
func (e *Engine) Initiate(ctx context.Context, target api.Id) error {
	if target.IsEmpty() {
		return api.ErrNoTarget
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local == nil {
		return ErrNoLocalMedia
	}
	e.endSession()

	s, err := e.newSession(target)
	if err != nil {
		return err
	}
	if err = e.offer(ctx, s); err != nil {
		_ = s.close()
		return err
	}
	e.session = s
	s.announce(e.sendCandidate(s))
	e.log.Info().Str("to", target.String()).Msg("Offer has been sent")
	return nil
}

func (e *Engine) offer(ctx context.Context, s *session) error {
	offer, err := s.t.CreateOffer()
	if err != nil {
		return fmt.Errorf("offer: %w", err)
	}
	if err = s.t.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("local description: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	return e.emit(api.Offer, s.peer, offer)
}

// AcceptIncoming answers an offer. An offer without a payload or a sender
// is rejected before anything else happens.
func (e *Engine) AcceptIncoming(ctx context.Context, env *api.Envelope) error {
	offer, err := readOffer(env)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local == nil {
		return ErrNoLocalMedia
	}
	e.endSession()

	s, err := e.newSession(env.From)
	if err != nil {
		return err
	}
	if err = e.answer(ctx, s, offer); err != nil {
		_ = s.close()
		return err
	}
	e.session = s
	s.announce(e.sendCandidate(s))
	e.log.Info().Str("to", s.peer.String()).Msg("Answer has been sent")
	return nil
}

func readOffer(env *api.Envelope) (webrtc.SessionDescription, error) {
	var offer webrtc.SessionDescription
	if env == nil || env.Type != api.Offer || env.From.IsEmpty() || !env.HasPayload() {
		return offer, ErrMalformedOffer
	}
	if err := env.Decode(&offer); err != nil {
		return offer, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
	}
	if offer.Type != webrtc.SDPTypeOffer || offer.SDP == "" {
		return offer, ErrMalformedOffer
	}
	return offer, nil
}

func (e *Engine) answer(ctx context.Context, s *session, offer webrtc.SessionDescription) error {
	if err := s.t.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("remote description: %w", err)
	}
	answer, err := s.t.CreateAnswer()
	if err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	if err = s.t.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("local description: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	return e.emit(api.Answer, s.peer, answer)
}

// ApplyRemoteAnswer sets the answer of the current session.
// It does nothing unless the session has sent an offer to that peer
// and has no answer yet.
func (e *Engine) ApplyRemoteAnswer(env *api.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || env == nil || env.From != s.peer {
		e.log.Debug().Msg("Answer without an offer, skip")
		return nil
	}
	if s.t.SignalingState() != webrtc.SignalingStateHaveLocalOffer || s.t.HasRemoteDescription() {
		e.log.Debug().Str("state", s.t.SignalingState().String()).Msg("Late answer, skip")
		return nil
	}
	var answer webrtc.SessionDescription
	if err := env.Decode(&answer); err != nil || answer.Type != webrtc.SDPTypeAnswer {
		e.log.Warn().Err(err).Msg("Bad answer, skip")
		return nil
	}
	if err := s.t.SetRemoteDescription(answer); err != nil {
		e.endSession()
		return fmt.Errorf("remote description: %w", err)
	}
	e.flushRemote(s)
	return nil
}

// ApplyRemoteCandidate adds a candidate to the current session.
// Candidates with no session are dropped.
func (e *Engine) ApplyRemoteCandidate(env *api.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if s == nil || env == nil || env.From != s.peer {
		e.dropped.Add(1)
		e.log.Debug().Msg("Candidate without a session, dropped")
		return
	}
	var c webrtc.ICECandidateInit
	if err := env.Decode(&c); err != nil {
		e.log.Warn().Err(err).Msg("Bad candidate, dropped")
		return
	}
	if !s.t.HasRemoteDescription() {
		s.queueRemote(c)
		return
	}
	if err := s.t.AddICECandidate(c); err != nil {
		e.log.Warn().Err(err).Msg("Candidate fail")
	}
}

func (e *Engine) flushRemote(s *session) {
	for _, c := range s.takeRemote() {
		if err := s.t.AddICECandidate(c); err != nil {
			e.log.Warn().Err(err).Msg("Candidate fail")
		}
	}
}

// Terminate closes the session, stops local media and clears
// the remote stream. Calling it again does nothing.
func (e *Engine) Terminate() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var result error
	if err := e.endSession(); err != nil {
		result = multierror.Append(result, err)
	}
	if e.local != nil {
		e.local.Stop()
		e.local = nil
	}
	return result
}

// endSession closes the current session if any and clears the remote stream.
func (e *Engine) endSession() error {
	s := e.session
	e.session = nil
	var err error
	if s != nil {
		err = s.close()
		e.log.Debug().Str("peer", s.peer.String()).Msg("Session has been closed")
	}
	e.remote.Reset()
	return err
}

func (e *Engine) newSession(peer api.Id) (*session, error) {
	t, err := e.factory.NewTransport()
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	s := &session{peer: peer, t: t}

	t.OnICECandidate(func(c *webrtc.ICECandidateInit) {
		if c == nil {
			e.log.Debug().Msg("ICE gathering is complete")
			return
		}
		s.candidate(*c, e.sendCandidate(s))
	})
	t.OnTrack(func(track Track) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		added := e.remote.Add(track)
		s.mu.Unlock()
		if added && e.onTrack != nil {
			e.onTrack(peer, track)
		}
	})
	t.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		e.log.Debug().Str("peer", peer.String()).Msgf("Connection state: %v", state)
		if e.onState != nil && !s.isClosed() {
			e.onState(peer, state)
		}
	})

	for _, track := range e.local.Tracks() {
		if err = t.AddTrack(track); err != nil {
			_ = s.close()
			return nil, fmt.Errorf("track: %w", err)
		}
	}
	return s, nil
}

// sendCandidate sends candidates always to the session peer.
func (e *Engine) sendCandidate(s *session) func(webrtc.ICECandidateInit) {
	return func(c webrtc.ICECandidateInit) {
		if err := e.emit(api.IceCandidate, s.peer, c); err != nil {
			e.log.Warn().Err(err).Msg("Candidate was not sent")
		}
	}
}

func (e *Engine) emit(t api.MessageType, to api.Id, payload any) error {
	env, err := api.NewSignal(t, to, payload)
	if err != nil {
		return err
	}
	return e.out.Send(env)
}
