// Package client keeps a peer connected to the signaling server
// and passes the incoming messages to the call handlers.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/network"
	"github.com/giongto35/cloud-call/pkg/network/websocket"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrGaveUp       = errors.New("no more reconnection attempts")
)

// Handler gets the call messages.
type Handler interface {
	HandleOffer(env *api.Envelope) bool
	HandleAnswer(env *api.Envelope)
	HandleCandidate(env *api.Envelope)
	PeerLeft(id api.Id)
}

// Directory keeps the list of other clients.
type Directory interface {
	Reset(self api.Id, peers []api.Id)
	Add(id api.Id) bool
}

type Client struct {
	address string
	retry   network.Retry
	backoff int
	max     time.Duration
	opts    websocket.Options
	handler Handler
	dir     Directory
	log     *logger.Logger

	mu sync.Mutex
	ws *websocket.WS
	id api.Id

	onConnect func(id api.Id)
}

func New(conf config.Peer, log *logger.Logger) *Client {
	return &Client{
		address: conf.Signal,
		retry:   network.NewRetry(conf.Reconnect.Delay, conf.Reconnect.Attempts),
		backoff: conf.Reconnect.Backoff,
		max:     conf.Reconnect.MaxDelay,
		opts: websocket.Options{
			SendQueue:      conf.Socket.SendQueue,
			MaxMessageSize: conf.Socket.MaxMessageSize,
			PongWait:       conf.Socket.PongWait,
			WriteWait:      conf.Socket.WriteWait,
		},
		log: log,
	}
}

// Bind sets where the messages go, call it before Run.
func (c *Client) Bind(handler Handler, dir Directory) { c.handler, c.dir = handler, dir }

// OnConnect sets a callback for each new identity given by the server.
func (c *Client) OnConnect(fn func(id api.Id)) { c.onConnect = fn }

// Id is the current identity, it changes with every connection.
func (c *Client) Id() api.Id { c.mu.Lock(); defer c.mu.Unlock(); return c.id }

// Send writes a message to the server without blocking.
func (c *Client) Send(e api.Envelope) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}
	data, err := api.Wrap(e)
	if err != nil {
		return err
	}
	return ws.Write(data)
}

// Run keeps the connection to the server until the context is done
// or it has failed too many times.
// A lost connection leaves the current call to the user,
// the next connection has a new identity.
func (c *Client) Run(ctx context.Context) error {
	for {
		ws, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msgf("no connection to the signaling server %v (attempt %v), retrying in %v",
				c.address, c.retry.Fails()+1, c.retry.Time())
			if !c.retry.Fail(ctx) {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %v", ErrGaveUp, err)
			}
			c.slowDown()
			continue
		}
		c.retry.Success()
		c.log.Info().Msgf("Connected to the signaling server %v", c.address)

		select {
		case <-ctx.Done():
			ws.Close()
			c.drop(ws)
			return nil
		case <-ws.Done:
		}
		c.drop(ws)
		c.log.Warn().Msg("Signaling connection has been lost, the call stays until hang-up")
		if !c.retry.Fail(ctx) {
			if ctx.Err() != nil {
				return nil
			}
			return ErrGaveUp
		}
	}
}

// slowDown grows the pause between failed dials.
func (c *Client) slowDown() {
	if c.backoff <= 1 {
		return
	}
	c.retry.Multiply(c.backoff)
	if c.max > 0 {
		c.retry.Limit(c.max)
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.WS, error) {
	ws, err := websocket.NewClient(ctx, c.address, c.opts, c.log)
	if err != nil {
		return nil, err
	}
	ws.OnMessage = c.dispatch
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	ws.Listen()
	return ws, nil
}

func (c *Client) drop(ws *websocket.WS) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws, c.id = nil, ""
	}
	c.mu.Unlock()
}

func (c *Client) dispatch(data []byte) {
	e, err := api.Unwrap(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("Bad message from the server")
		return
	}
	c.log.Debug().Str(logger.DirectionField, "←").Str("type", string(e.Type)).Str("from", e.From.String()).Msg("Message")

	switch e.Type {
	case api.Connect:
		c.mu.Lock()
		c.id = e.Id
		c.mu.Unlock()
		if c.dir != nil {
			c.dir.Reset(e.Id, e.Peers)
		}
		c.log.Info().Str("id", e.Id.String()).Int("peers", len(e.Peers)).Msg("Got an identity")
		if c.onConnect != nil {
			c.onConnect(e.Id)
		}
	case api.NewClient:
		if c.dir != nil && c.dir.Add(e.Id) {
			c.log.Info().Str("id", e.Id.String()).Msg("New peer")
		}
	case api.ClientDisconnected:
		c.log.Info().Str("id", e.Id.String()).Msg("Peer has left")
		if c.handler != nil {
			c.handler.PeerLeft(e.Id)
		}
	case api.Offer:
		if c.handler != nil {
			c.handler.HandleOffer(e)
		}
	case api.Answer:
		if c.handler != nil {
			c.handler.HandleAnswer(e)
		}
	case api.IceCandidate:
		if c.handler != nil {
			c.handler.HandleCandidate(e)
		}
	default:
		c.log.Warn().Str("type", string(e.Type)).Msg("Unknown message")
	}
}
