package peer

import (
	"context"
	"errors"
	"sync"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/pion/webrtc/v3"
)

type fakeTrack struct {
	id   string
	kind webrtc.RTPCodecType
}

func (f fakeTrack) ID() string                { return f.id }
func (f fakeTrack) StreamID() string          { return "s" }
func (f fakeTrack) Kind() webrtc.RTPCodecType { return f.kind }

type fakeTransport struct {
	mu         sync.Mutex
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	state      webrtc.SignalingState
	candidates []webrtc.ICECandidateInit
	tracks     int
	closed     int
	failRemote error

	onCandidate func(*webrtc.ICECandidateInit)
	onTrack     func(Track)
	onState     func(webrtc.PeerConnectionState)
}

func (f *fakeTransport) AddTrack(webrtc.TrackLocal) error {
	f.mu.Lock()
	f.tracks++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (f *fakeTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	if f.remote == nil {
		return webrtc.SessionDescription{}, errors.New("no remote")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (f *fakeTransport) SetLocalDescription(d webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.local = &d
	if d.Type == webrtc.SDPTypeOffer {
		f.state = webrtc.SignalingStateHaveLocalOffer
	} else {
		f.state = webrtc.SignalingStateStable
	}
	return nil
}

func (f *fakeTransport) SetRemoteDescription(d webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemote != nil {
		return f.failRemote
	}
	f.remote = &d
	if d.Type == webrtc.SDPTypeOffer {
		f.state = webrtc.SignalingStateHaveRemoteOffer
	} else {
		f.state = webrtc.SignalingStateStable
	}
	return nil
}

func (f *fakeTransport) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.mu.Lock()
	f.candidates = append(f.candidates, c)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SignalingState() webrtc.SignalingState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == 0 {
		return webrtc.SignalingStateStable
	}
	return f.state
}

func (f *fakeTransport) HasRemoteDescription() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remote != nil
}

func (f *fakeTransport) OnICECandidate(fn func(*webrtc.ICECandidateInit))            { f.onCandidate = fn }
func (f *fakeTransport) OnTrack(fn func(Track))                                      { f.onTrack = fn }
func (f *fakeTransport) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) { f.onState = fn }

func (f *fakeTransport) Close() error { f.mu.Lock(); f.closed++; f.mu.Unlock(); return nil }

func (f *fakeTransport) added() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), f.candidates...)
}

type fakeFactory struct {
	mu   sync.Mutex
	list []*fakeTransport
	err  error
}

func (f *fakeFactory) NewTransport() (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t := &fakeTransport{}
	f.list = append(f.list, t)
	return t, nil
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.list) == 0 {
		return nil
	}
	return f.list[len(f.list)-1]
}

type fakeSignaler struct {
	mu  sync.Mutex
	out []api.Envelope
}

func (f *fakeSignaler) Send(e api.Envelope) error {
	f.mu.Lock()
	f.out = append(f.out, e)
	f.mu.Unlock()
	return nil
}

func (f *fakeSignaler) sent() []api.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Envelope(nil), f.out...)
}

type fakeMedia struct {
	err    error
	stops  int
	tracks int
}

func (f *fakeMedia) Capture(context.Context) (*LocalStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &LocalStream{}
	for i := 0; i < f.tracks; i++ {
		s.tracks = append(s.tracks, nil)
	}
	s.cancel = func() { f.stops++ }
	return s, nil
}
