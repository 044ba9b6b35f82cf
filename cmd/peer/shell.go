package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/call"
)

const help = "commands: peers, call <id>, accept, hangup, quit"

type identity interface {
	Id() api.Id
}

// shell runs line commands against the call controller.
type shell struct {
	ctrl *call.Controller
	dir  *call.Directory
	self identity
	out  io.Writer
}

func newShell(ctrl *call.Controller, dir *call.Directory, self identity, out io.Writer) *shell {
	return &shell{ctrl: ctrl, dir: dir, self: self, out: out}
}

// run reads commands until quit or the end of input.
func (s *shell) run(ctx context.Context, in *bufio.Scanner) {
	s.print(help)
	for in.Scan() {
		if ctx.Err() != nil {
			return
		}
		if s.exec(ctx, in.Text()) {
			return
		}
	}
}

// exec runs one command and tells whether it is time to quit.
func (s *shell) exec(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	var err error
	switch args[0] {
	case "peers":
		s.print(fmt.Sprintf("me: %v, peers: %v, state: %v", s.self.Id(), s.dir.Snapshot(), s.ctrl.State()))
	case "call":
		if len(args) < 2 {
			s.print("usage: call <id>")
			return false
		}
		err = s.ctrl.Start(ctx, api.Id(args[1]))
	case "accept":
		err = s.ctrl.Accept(ctx)
	case "hangup":
		err = s.ctrl.HangUp()
	case "quit", "exit":
		return true
	default:
		s.print(help)
	}
	if err != nil {
		s.print("error: " + err.Error())
	}
	return false
}

func (s *shell) print(text string) { _, _ = fmt.Fprintln(s.out, text) }
