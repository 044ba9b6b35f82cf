package httpx

import (
	"net"
	"testing"
)

type testListener struct {
	addr net.TCPAddr
}

func (tl testListener) Accept() (net.Conn, error) { return nil, nil }
func (tl testListener) Close() error              { return nil }
func (tl testListener) Addr() net.Addr            { return &tl.addr }

func newTCP(port int) *Listener { return &Listener{testListener{addr: net.TCPAddr{Port: port}}} }

func TestBuildAddress(t *testing.T) {
	tests := []struct {
		addr string
		ls   *Listener
		rez  string
	}{
		{addr: "", rez: "localhost"},
		{addr: ":", ls: newTCP(0), rez: "localhost"},
		{addr: "", ls: newTCP(393), rez: "localhost:393"},
		{addr: ":8080", ls: newTCP(8080), rez: "localhost:8080"},
		{addr: ":8080", ls: newTCP(8081), rez: "localhost:8081"},
		{addr: "host:8080", ls: newTCP(8080), rez: "host:8080"},
		{addr: "host:8080", ls: newTCP(8081), rez: "host:8081"},
		{addr: ":80", ls: newTCP(80), rez: "localhost"},
		{addr: ":443", ls: newTCP(443), rez: "localhost"},
		{addr: "[::]", rez: "[::]"},
	}

	for _, test := range tests {
		address := buildAddress(test.addr, test.ls)
		if address != test.rez {
			t.Errorf("expected %v, got %v", test.rez, address)
		}
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr string
		host string
		port int
	}{
		{addr: ":3000", host: "", port: 3000},
		{addr: "localhost:80", host: "localhost", port: 80},
		{addr: "localhost", host: "localhost", port: 0},
		{addr: "localhost:abc", host: "localhost", port: 0},
	}
	for _, test := range tests {
		host, port := splitHostPort(test.addr)
		if host != test.host || port != test.port {
			t.Errorf("%v: got %v %v, want %v %v", test.addr, host, port, test.host, test.port)
		}
	}
}
