package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/network/httpx"
	"github.com/giongto35/cloud-call/pkg/network/websocket"
	"github.com/goccy/go-json"
)

// Server accepts client WebSocket connections and wires them to the relay.
type Server struct {
	relay    *Relay
	upgrader *websocket.Upgrader
	opts     websocket.Options
	log      *logger.Logger

	mu     sync.Mutex
	conns  map[*websocket.WS]struct{}
	closed bool
	wg     sync.WaitGroup
}

// client adapts a socket to the relay channel.
type client struct{ *websocket.WS }

func (c client) Send(data []byte) error { return c.Write(data) }

func NewServer(relay *Relay, conf config.Socket, log *logger.Logger) *Server {
	return &Server{
		relay:    relay,
		upgrader: websocket.DefaultUpgrader,
		opts: websocket.Options{
			SendQueue:      conf.SendQueue,
			MaxMessageSize: conf.MaxMessageSize,
			PingPong:       !conf.NoPingPong,
			PongWait:       conf.PongWait,
			WriteWait:      conf.WriteWait,
		},
		log:   log,
		conns: map[*websocket.WS]struct{}{},
	}
}

// ServeHTTP handles one client for the whole connection lifetime.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.NewServer(s.upgrader, w, r, s.opts, s.log)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade fail")
		return
	}
	if !s.track(ws) {
		ws.Close()
		return
	}
	defer s.untrack(ws)

	id, err := s.relay.Connect(client{ws})
	if err != nil {
		s.log.Error().Err(err).Msg("couldn't register client")
		ws.Close()
		return
	}
	// any way out of here unregisters the client
	defer s.relay.Disconnect(id)

	log := s.log.Client(id.String())
	ws.SetLogger(log)
	ws.OnMessage = func(message []byte) {
		if err := s.relay.Handle(id, message); err != nil {
			log.Warn().Err(err).Msg("Bad message")
		}
	}
	ws.Listen()
	<-ws.Done
}

func (s *Server) track(ws *websocket.WS) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[ws] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(ws *websocket.WS) {
	s.mu.Lock()
	delete(s.conns, ws)
	s.mu.Unlock()
	s.wg.Done()
}

// Close drops all client connections and waits until
// they are unregistered or ctx is done.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for ws := range s.conns {
		ws.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Routes sets the signaling HTTP endpoints.
func (s *Server) Routes(path string, registry *Registry) httpx.Handler {
	mux := httpx.NewServeMux("")
	mux.Handle(path, s)
	mux.HandleFunc("/healthz", func(w httpx.ResponseWriter, _ *httpx.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Clients int `json:"clients"`
		}{registry.Len()})
	})
	mux.HandleFunc("/", func(w httpx.ResponseWriter, r *httpx.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("cloud-call signaling, connect to " + path + "\n"))
	})
	return mux
}
