package signal

import (
	"context"
	"testing"
	"time"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/config"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/network/websocket"
)

func TestSignalLifecycle(t *testing.T) {
	conf := config.SignalConfig{}
	conf.Signal.Path = "/ws"
	conf.Signal.Server.Address = "127.0.0.1:0"

	s, err := New(conf, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	s.Start()

	ws, err := websocket.NewClient(context.Background(), "ws://"+s.Addr()+"/ws", websocket.Options{}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got := make(chan api.MessageType, 1)
	ws.OnMessage = func(m []byte) {
		if e, err := api.Unwrap(m); err == nil {
			select {
			case got <- e.Type:
			default:
			}
		}
	}
	ws.Listen()

	select {
	case typ := <-got:
		if typ != api.Connect {
			t.Errorf("got %v first", typ)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no connect event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err = s.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if s.Registry.Len() != 0 {
		t.Errorf("clients left after shutdown")
	}
}
