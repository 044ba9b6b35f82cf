package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 64 * 1024
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
	sendQueue      = 64
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrQueueFull = errors.New("send queue is full")
)

type Options struct {
	SendQueue      int
	MaxMessageSize int64
	PingPong       bool
	PongWait       time.Duration
	WriteWait      time.Duration
}

func (o *Options) defaults() {
	if o.SendQueue <= 0 {
		o.SendQueue = sendQueue
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = maxMessageSize
	}
	if o.PongWait <= 0 {
		o.PongWait = pongTime
	}
	if o.WriteWait <= 0 {
		o.WriteWait = writeWait
	}
}

type WS struct {
	conn deadlinedConn
	send chan []byte
	opts Options

	OnMessage MessageHandler

	dropped atomic.Int64
	once    sync.Once
	listen  sync.Once
	Done    chan struct{}
	log     *logger.Logger
}

type MessageHandler func(message []byte)

type Upgrader struct {
	websocket.Upgrader
}

var DefaultUpgrader = NewUpgrader("")

// NewUpgrader makes an upgrader that accepts only the given origin,
// or any origin if it's empty.
func NewUpgrader(origin string) *Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteBufferPool: &sync.Pool{},
	}
	u.CheckOrigin = func(r *http.Request) bool {
		return origin == "" || r.Header.Get("Origin") == origin
	}
	return &Upgrader{u}
}

// NewServer upgrades an HTTP request into a server side websocket.
// Call Listen after setting OnMessage.
func NewServer(u *Upgrader, w http.ResponseWriter, r *http.Request, opts Options, log *logger.Logger) (*WS, error) {
	if u == nil {
		u = DefaultUpgrader
	}
	conn, err := u.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, opts, log), nil
}

// NewClient dials a websocket server. The client doesn't ping the server,
// it only answers the server pings.
func NewClient(ctx context.Context, address string, opts Options, log *logger.Logger) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, err
	}
	opts.PingPong = false
	return newSocket(conn, opts, log), nil
}

func newSocket(conn *websocket.Conn, opts Options, log *logger.Logger) *WS {
	opts.defaults()
	if log == nil {
		log = logger.Default()
	}
	return &WS{
		conn: deadlinedConn{sock: conn, wt: opts.WriteWait},
		send: make(chan []byte, opts.SendQueue),
		opts: opts,
		Done: make(chan struct{}),
		log:  log,
	}
}

// Listen starts the read and write pumps.
func (ws *WS) Listen() {
	ws.listen.Do(func() {
		go ws.writer()
		go ws.reader()
	})
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Serializes all websocket reads.
func (ws *WS) reader() {
	defer ws.stop()
	ws.conn.setup(func(conn *websocket.Conn) {
		conn.SetReadLimit(ws.opts.MaxMessageSize)
		if ws.opts.PingPong {
			_ = conn.SetReadDeadline(time.Now().Add(ws.opts.PongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(ws.opts.PongWait))
			})
		}
	})
	for {
		message, err := ws.conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.log.Warn().Err(err).Msg("WebSocket read fail")
			} else {
				ws.log.Debug().Err(err).Msg("WebSocket closed")
			}
			return
		}
		if ws.log.GetLevel() < logger.InfoLevel {
			ws.log.Debug().Str(logger.DirectionField, "←").Msgf("%s", message)
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Serializes all websocket writes.
func (ws *WS) writer() {
	var tick <-chan time.Time
	if ws.opts.PingPong {
		ticker := time.NewTicker(ws.opts.PongWait * 9 / 10)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer ws.stop()
	for {
		select {
		case message := <-ws.send:
			if ws.log.GetLevel() < logger.InfoLevel {
				ws.log.Debug().Str(logger.DirectionField, "→").Msgf("%s", message)
			}
			if err := ws.conn.write(websocket.TextMessage, message); err != nil {
				ws.log.Warn().Err(err).Msg("WebSocket write fail")
				return
			}
		case <-tick:
			if err := ws.conn.write(websocket.PingMessage, nil); err != nil {
				ws.log.Debug().Err(err).Msg("WebSocket ping fail")
				return
			}
		case <-ws.Done:
			return
		}
	}
}

// Write queues a message for sending without waiting.
// Returns ErrQueueFull when the peer doesn't keep up.
func (ws *WS) Write(data []byte) error {
	select {
	case <-ws.Done:
		return ErrClosed
	default:
	}
	select {
	case ws.send <- data:
		return nil
	case <-ws.Done:
		return ErrClosed
	default:
		ws.dropped.Add(1)
		return ErrQueueFull
	}
}

// SetLogger changes the logger, call it before Listen.
func (ws *WS) SetLogger(log *logger.Logger) { ws.log = log }

// Dropped is the number of messages rejected by a full queue.
func (ws *WS) Dropped() int64 { return ws.dropped.Load() }

// Close sends a close frame and shuts the connection down.
func (ws *WS) Close() {
	_ = ws.conn.control(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.stop()
}

func (ws *WS) IsClosed() bool {
	select {
	case <-ws.Done:
		return true
	default:
		return false
	}
}

func (ws *WS) stop() {
	ws.once.Do(func() {
		close(ws.Done)
		_ = ws.conn.close()
	})
}
