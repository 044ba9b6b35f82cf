package config

import (
	"time"

	"github.com/spf13/pflag"
)

type PeerConfig struct {
	Peer    Peer
	Webrtc  Webrtc
	Version Version
}

type Peer struct {
	Debug   bool
	NoColor bool
	// Signal is the WebSocket address of the signaling server.
	Signal    string `default:"ws://localhost:3000/ws"`
	Reconnect struct {
		Attempts int           `default:"5"`
		Delay    time.Duration `default:"1s"`
		// Backoff multiplies the delay after each failed dial, up to MaxDelay.
		Backoff  int           `default:"2"`
		MaxDelay time.Duration `default:"30s"`
	}
	// Poll is how often the peer directory is printed/refreshed.
	Poll       time.Duration `default:"1s"`
	AutoAccept bool
	Call       string
	Media      Media
	// Socket sets up the connection to the signaling server.
	Socket Socket
}

// Media selects what a peer sends.
type Media struct {
	// Audio is an optional Ogg/Opus file.
	Audio string
	// Video is an optional IVF (VP8) file.
	Video string
	// NoSilence turns off the synthetic Opus track sent when no audio file is set.
	NoSilence bool
	// NoLoop plays media files once.
	NoLoop bool
}

func NewPeerConfig(path string) (conf PeerConfig, err error) {
	err = LoadConfig(&conf, "peer.yaml", path)
	return
}

func (c *PeerConfig) AddFlags(fs *pflag.FlagSet) *PeerConfig {
	fs.BoolVar(&c.Peer.Debug, "debug", c.Peer.Debug, "Debug log level")
	fs.StringVar(&c.Peer.Signal, "signal", c.Peer.Signal, "Signaling server address")
	fs.StringVar(&c.Peer.Call, "call", c.Peer.Call, "Call a peer with the id right away")
	fs.BoolVar(&c.Peer.AutoAccept, "auto-accept", c.Peer.AutoAccept, "Accept incoming calls without asking")
	fs.IntVar(&c.Peer.Reconnect.Attempts, "reconnect", c.Peer.Reconnect.Attempts, "Number of reconnection attempts")
	fs.StringVar(&c.Peer.Media.Audio, "audio", c.Peer.Media.Audio, "Ogg/Opus file to stream")
	fs.StringVar(&c.Peer.Media.Video, "video", c.Peer.Media.Video, "IVF file to stream")
	fs.BoolVar(&c.Peer.Media.NoSilence, "no-silence", c.Peer.Media.NoSilence, "Don't send silence when there is no audio file")
	fs.StringVar(&confPath, "conf", confPath, "Set custom configuration file path")
	return c
}
