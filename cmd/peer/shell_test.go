package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/call"
	"github.com/giongto35/cloud-call/pkg/logger"
)

type nopEngine struct{ terminated int }

func (*nopEngine) Capture(context.Context) error                       { return nil }
func (*nopEngine) Initiate(context.Context, api.Id) error              { return nil }
func (*nopEngine) AcceptIncoming(context.Context, *api.Envelope) error { return nil }
func (*nopEngine) ApplyRemoteAnswer(*api.Envelope) error               { return nil }
func (*nopEngine) ApplyRemoteCandidate(*api.Envelope)                  {}
func (e *nopEngine) Terminate() error                                  { e.terminated++; return nil }

type me api.Id

func (m me) Id() api.Id { return api.Id(m) }

func newTestShell() (*shell, *call.Controller, *bytes.Buffer) {
	dir := call.NewDirectory()
	dir.Reset("a1", []api.Id{"b1"})
	ctrl := call.NewController(&nopEngine{}, dir, logger.Nop())
	var out bytes.Buffer
	return newShell(ctrl, dir, me("a1"), &out), ctrl, &out
}

func TestShell(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		state call.State
		out   string
	}{
		{name: "peers", lines: []string{"peers"}, state: call.Idle, out: "me: a1, peers: [b1], state: idle"},
		{name: "call", lines: []string{"call b1"}, state: call.Calling},
		{name: "call nobody", lines: []string{"call"}, state: call.Idle, out: "usage: call <id>"},
		{name: "call a stranger", lines: []string{"call x1"}, state: call.Idle, out: "unknown peer"},
		{name: "accept nothing", lines: []string{"accept"}, state: call.Idle, out: "invalid transition"},
		{name: "hang up", lines: []string{"call b1", "hangup"}, state: call.Idle},
		{name: "unknown", lines: []string{"dance"}, state: call.Idle, out: help},
		{name: "empty", lines: []string{"", "   "}, state: call.Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, ctrl, out := newTestShell()
			for _, line := range tt.lines {
				if sh.exec(context.Background(), line) {
					t.Fatalf("quit on %q", line)
				}
			}
			if ctrl.State() != tt.state {
				t.Errorf("state is %v, want %v", ctrl.State(), tt.state)
			}
			if !strings.Contains(out.String(), tt.out) {
				t.Errorf("output %q has no %q", out.String(), tt.out)
			}
		})
	}
}

func TestShellQuit(t *testing.T) {
	sh, ctrl, _ := newTestShell()
	in := bufio.NewScanner(strings.NewReader("call b1\nquit\ncall b1\n"))
	sh.run(context.Background(), in)
	if ctrl.State() != call.Calling {
		t.Errorf("state is %v", ctrl.State())
	}
	if sh.exec(context.Background(), "exit") != true {
		t.Errorf("exit doesn't quit")
	}
}

func TestIncomingAccept(t *testing.T) {
	sh, ctrl, _ := newTestShell()
	ctrl.HandleOffer(&api.Envelope{Type: api.Offer, From: "b1"})
	sh.exec(context.Background(), "accept")
	if ctrl.State() != call.Active || !ctrl.InCall() {
		t.Errorf("call was not accepted: %v", ctrl.State())
	}
}
