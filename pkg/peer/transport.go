package peer

import (
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/pion/webrtc/v3"
)

// Transport is one peer connection.
type Transport interface {
	AddTrack(track webrtc.TrackLocal) error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	SignalingState() webrtc.SignalingState
	HasRemoteDescription() bool

	// OnICECandidate gets nil when gathering is complete.
	OnICECandidate(fn func(candidate *webrtc.ICECandidateInit))
	OnTrack(fn func(track Track))
	OnConnectionStateChange(fn func(state webrtc.PeerConnectionState))
	Close() error
}

// Track is an inbound media track.
type Track interface {
	ID() string
	StreamID() string
	Kind() webrtc.RTPCodecType
}

type TransportFactory interface {
	NewTransport() (Transport, error)
}

type pionTransport struct {
	pc  *webrtc.PeerConnection
	log *logger.Logger
}

func (p *pionTransport) AddTrack(track webrtc.TrackLocal) error {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return err
	}
	// interceptors (NACK, reports) work only when RTCP is read
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
	return nil
}

func (p *pionTransport) CreateOffer() (webrtc.SessionDescription, error) { return p.pc.CreateOffer(nil) }

func (p *pionTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

func (p *pionTransport) SetLocalDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

func (p *pionTransport) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *pionTransport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *pionTransport) SignalingState() webrtc.SignalingState { return p.pc.SignalingState() }
func (p *pionTransport) HasRemoteDescription() bool            { return p.pc.RemoteDescription() != nil }

func (p *pionTransport) OnICECandidate(fn func(*webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			fn(nil)
			return
		}
		init := c.ToJSON()
		fn(&init)
	})
}

func (p *pionTransport) OnTrack(fn func(Track)) {
	p.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		p.log.Debug().Str("kind", track.Kind().String()).Str("codec", track.Codec().MimeType).Msg("Remote track")
		go drain(track)
		fn(track)
	})
}

func (p *pionTransport) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	p.pc.OnConnectionStateChange(fn)
}

func (p *pionTransport) Close() error { return p.pc.Close() }

// drain reads the track till it ends, nobody plays the media here.
func drain(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}
