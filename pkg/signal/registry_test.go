package signal

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/giongto35/cloud-call/pkg/api"
)

type nopChannel struct{}

func (nopChannel) Send([]byte) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("a", nopChannel{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("a", nopChannel{}); !errors.Is(err, ErrDuplicateId) {
		t.Errorf("expected duplicate id error, got %v", err)
	}
	if err := r.Register("", nopChannel{}); !errors.Is(err, ErrEmptyId) {
		t.Errorf("expected empty id error, got %v", err)
	}
	if _, ok := r.Resolve("a"); !ok {
		t.Errorf("a is not resolved")
	}
	if _, ok := r.Resolve("b"); ok {
		t.Errorf("b should not be resolved")
	}
	if !r.Unregister("a") {
		t.Errorf("a was not unregistered")
	}
	if r.Unregister("a") {
		t.Errorf("a was unregistered twice")
	}
	if r.Len() != 0 {
		t.Errorf("registry is not empty")
	}
}

// The resolvable ids must always be the set of open connections.
func TestRegistryFollowsConnections(t *testing.T) {
	r := NewRegistry()
	open := map[api.Id]bool{}
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		id := api.Id(fmt.Sprintf("c%d", rnd.Intn(20)))
		if open[id] {
			r.Unregister(id)
			delete(open, id)
		} else {
			if err := r.Register(id, nopChannel{}); err != nil {
				t.Fatal(err)
			}
			open[id] = true
		}

		var want []api.Id
		for id := range open {
			want = append(want, id)
		}
		sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
		got := r.Ids()
		if len(got) != len(want) {
			t.Fatalf("step %v: got %v, want %v", i, got, want)
		}
		for k := range got {
			if got[k] != want[k] {
				t.Fatalf("step %v: got %v, want %v", i, got, want)
			}
		}
	}
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := api.Id(fmt.Sprintf("c%d", i))
			_ = r.Register(id, nopChannel{})
			r.Resolve(id)
			r.ForEach(id, func(api.Id, Channel) {})
			if i%2 == 0 {
				r.Unregister(id)
			}
		}(i)
	}
	wg.Wait()
	if r.Len() != 25 {
		t.Errorf("expected 25 clients, got %v", r.Len())
	}
}

func TestForEachSkips(t *testing.T) {
	r := NewRegistry()
	for _, id := range []api.Id{"a", "b", "c"} {
		_ = r.Register(id, nopChannel{})
	}
	var seen []api.Id
	r.ForEach("b", func(id api.Id, _ Channel) { seen = append(seen, id) })
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	if len(seen) != 2 || seen[0] != "a" || seen[1] != "c" {
		t.Errorf("unexpected %v", seen)
	}
}
