package signal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/giongto35/cloud-call/pkg/api"
	"github.com/giongto35/cloud-call/pkg/logger"
	"github.com/giongto35/cloud-call/pkg/network/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeChannel struct {
	mu  sync.Mutex
	got [][]byte
	err error
}

func (f *fakeChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, data)
	return nil
}

func (f *fakeChannel) envelopes(t *testing.T) []api.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.Envelope
	for _, d := range f.got {
		e, err := api.Unwrap(d)
		if err != nil {
			t.Fatalf("bad message %s: %v", d, err)
		}
		out = append(out, *e)
	}
	return out
}

func (f *fakeChannel) reset() { f.mu.Lock(); f.got = nil; f.mu.Unlock() }

func newTestRelay() (*Relay, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	r := NewRelay(NewRegistry(), m, logger.Nop())
	var n int
	ids := []string{"a1", "b1", "c1", "d1"}
	r.newId = func() api.Id { id := ids[n%len(ids)]; n++; return api.Id(id) }
	return r, m
}

func connect(t *testing.T, r *Relay) (api.Id, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	id, err := r.Connect(ch)
	if err != nil {
		t.Fatal(err)
	}
	return id, ch
}

func TestPresence(t *testing.T) {
	r, m := newTestRelay()
	a, cha := connect(t, r)
	b, chb := connect(t, r)

	ea := cha.envelopes(t)
	if len(ea) != 2 {
		t.Fatalf("a got %v messages", len(ea))
	}
	if ea[0].Type != api.Connect || ea[0].Id != a || len(ea[0].Peers) != 0 {
		t.Errorf("a connect event is wrong %+v", ea[0])
	}
	if ea[1].Type != api.NewClient || ea[1].Id != b {
		t.Errorf("a didn't get new-client b1: %+v", ea[1])
	}

	eb := chb.envelopes(t)
	if len(eb) != 1 || eb[0].Type != api.Connect || eb[0].Id != b {
		t.Fatalf("b connect event is wrong %+v", eb)
	}
	if len(eb[0].Peers) != 1 || eb[0].Peers[0] != a {
		t.Errorf("b should know about a: %v", eb[0].Peers)
	}
	if v := testutil.ToFloat64(m.clients); v != 2 {
		t.Errorf("clients gauge %v", v)
	}

	cha.reset()
	r.Disconnect(b)
	r.Disconnect(b)
	ea = cha.envelopes(t)
	if len(ea) != 1 || ea[0].Type != api.ClientDisconnected || ea[0].Id != b {
		t.Errorf("a should get one client-disconnected b1: %+v", ea)
	}
	if _, ok := r.registry.Resolve(b); ok {
		t.Errorf("b is still registered")
	}
	if v := testutil.ToFloat64(m.clients); v != 1 {
		t.Errorf("clients gauge %v", v)
	}
}

func TestRelaySpoofedSender(t *testing.T) {
	r, m := newTestRelay()
	a, _ := connect(t, r)
	b, chb := connect(t, r)
	_, chc := connect(t, r)
	chb.reset()
	chc.reset()

	msg := fmt.Sprintf(`{"type":"offer","target":"%v","from":"c1","offer":{"type":"offer","sdp":"v=0"}}`, b)
	if err := r.Handle(a, []byte(msg)); err != nil {
		t.Fatal(err)
	}
	got := chb.envelopes(t)
	if len(got) != 1 {
		t.Fatalf("b got %v messages", len(got))
	}
	if got[0].From != a {
		t.Errorf("from is %v, want %v", got[0].From, a)
	}
	if got[0].Type != api.Offer || string(got[0].Offer) != `{"type":"offer","sdp":"v=0"}` {
		t.Errorf("payload changed %+v", got[0])
	}
	if len(chc.envelopes(t)) != 0 {
		t.Errorf("c got a unicast message")
	}
	if v := testutil.ToFloat64(m.relayed.WithLabelValues("offer")); v != 1 {
		t.Errorf("relayed counter %v", v)
	}
}

func TestRelayUnknownTarget(t *testing.T) {
	r, m := newTestRelay()
	a, cha := connect(t, r)
	b, chb := connect(t, r)
	r.Disconnect(b)
	cha.reset()
	chb.reset()

	for _, typ := range []string{"offer", "answer", "ice-candidate"} {
		msg := fmt.Sprintf(`{"type":"%v","target":"%v"}`, typ, b)
		if err := r.Handle(a, []byte(msg)); err != nil {
			t.Errorf("%v: a miss must not be an error, got %v", typ, err)
		}
	}
	if n := len(cha.envelopes(t)) + len(chb.envelopes(t)); n != 0 {
		t.Errorf("%v messages were delivered", n)
	}
	if v := testutil.ToFloat64(m.undelivered.WithLabelValues("ice-candidate")); v != 1 {
		t.Errorf("undelivered counter %v", v)
	}
}

func TestRelayMalformed(t *testing.T) {
	r, m := newTestRelay()
	a, cha := connect(t, r)
	b, chb := connect(t, r)
	cha.reset()
	chb.reset()

	bad := []string{
		`garbage`,
		`{"type":"new-client","target":"b1","id":"x"}`,
		`{"type":"offer"}`,
		`{}`,
	}
	for _, msg := range bad {
		if err := r.Handle(a, []byte(msg)); err == nil {
			t.Errorf("%v: expected an error", msg)
		}
	}
	if len(chb.envelopes(t)) != 0 {
		t.Errorf("b got a bad message")
	}
	if v := testutil.ToFloat64(m.malformed); v != float64(len(bad)) {
		t.Errorf("malformed counter %v", v)
	}

	// still works for the others
	if err := r.Handle(a, []byte(fmt.Sprintf(`{"type":"answer","target":"%v","answer":{}}`, b))); err != nil {
		t.Fatal(err)
	}
	if len(chb.envelopes(t)) != 1 {
		t.Errorf("b didn't get the answer")
	}
}

func TestRelayOrder(t *testing.T) {
	r, _ := newTestRelay()
	a, _ := connect(t, r)
	b, chb := connect(t, r)

	for i := 0; i < 20; i++ {
		msg := fmt.Sprintf(`{"type":"ice-candidate","target":"%v","candidate":{"candidate":"c%d"}}`, b, i)
		if err := r.Handle(a, []byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	got := chb.envelopes(t)[1:]
	for i, e := range got {
		want := fmt.Sprintf(`{"candidate":"c%d"}`, i)
		if string(e.Candidate) != want {
			t.Errorf("message %v is %s, want %s", i, e.Candidate, want)
		}
	}
}

func TestRelayFullQueue(t *testing.T) {
	r, m := newTestRelay()
	a, _ := connect(t, r)
	b, chb := connect(t, r)
	chb.err = websocket.ErrQueueFull

	if err := r.Handle(a, []byte(fmt.Sprintf(`{"type":"offer","target":"%v","offer":{}}`, b))); err != nil {
		t.Fatal(err)
	}
	if v := testutil.ToFloat64(m.dropped); v != 1 {
		t.Errorf("dropped counter %v", v)
	}
	if v := testutil.ToFloat64(m.relayed.WithLabelValues("offer")); v != 0 {
		t.Errorf("relayed counter %v", v)
	}
}
