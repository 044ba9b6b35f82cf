package peer

import (
	"sync"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/pion/webrtc/v3"
)

// session is one peer connection bound to one remote peer.
type session struct {
	peer api.Id
	t    Transport

	mu     sync.Mutex
	closed bool
	// local candidates wait until the offer or answer has been sent
	announced bool
	outbox    []webrtc.ICECandidateInit
	// remote candidates wait for the remote description
	inbox []webrtc.ICECandidateInit
}

func (s *session) isClosed() bool { s.mu.Lock(); defer s.mu.Unlock(); return s.closed }

// close closes the transport once.
func (s *session) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.outbox, s.inbox = nil, nil
	s.mu.Unlock()
	return s.t.Close()
}

// candidate sends a local candidate or keeps it until the session is announced.
func (s *session) candidate(c webrtc.ICECandidateInit, send func(webrtc.ICECandidateInit)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !s.announced {
		s.outbox = append(s.outbox, c)
		return
	}
	send(c)
}

// announce marks the local description as sent and flushes
// the local candidates gathered so far.
func (s *session) announce(send func(webrtc.ICECandidateInit)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.announced {
		return
	}
	s.announced = true
	for _, c := range s.outbox {
		send(c)
	}
	s.outbox = nil
}

func (s *session) queueRemote(c webrtc.ICECandidateInit) {
	s.mu.Lock()
	s.inbox = append(s.inbox, c)
	s.mu.Unlock()
}

func (s *session) takeRemote() []webrtc.ICECandidateInit {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.inbox
	s.inbox = nil
	return list
}
