package config

import (
	"time"

	"github.com/spf13/pflag"
)

type SignalConfig struct {
	Signal  Signal
	Version Version
}

type Signal struct {
	Debug      bool
	NoColor    bool
	Path       string `default:"/ws"`
	Server     Server
	Monitoring Monitoring
	Socket     Socket
}

// Socket sets up each client connection.
type Socket struct {
	// SendQueue is the number of outgoing messages buffered per client,
	// a full queue drops new messages.
	SendQueue      int           `default:"64"`
	MaxMessageSize int64         `default:"65536"`
	PongWait       time.Duration `default:"60s"`
	WriteWait      time.Duration `default:"10s"`
	// NoPingPong turns off keepalive pings to clients.
	NoPingPong bool
}

// allows custom config path
var confPath string

func NewSignalConfig(path string) (conf SignalConfig, err error) {
	err = LoadConfig(&conf, "signal.yaml", path)
	return
}

func (c *SignalConfig) AddFlags(fs *pflag.FlagSet) *SignalConfig {
	c.Signal.Server.AddFlags(fs)
	c.Signal.Monitoring.AddFlags(fs)
	fs.BoolVar(&c.Signal.Debug, "debug", c.Signal.Debug, "Debug log level")
	fs.StringVar(&c.Signal.Path, "path", c.Signal.Path, "WebSocket endpoint path")
	fs.IntVar(&c.Signal.Socket.SendQueue, "sendQueue", c.Signal.Socket.SendQueue, "Outgoing message queue size per client")
	fs.StringVar(&confPath, "conf", confPath, "Set custom configuration file path")
	return c
}
