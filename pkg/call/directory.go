package call

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/giongto35/cloud-call/pkg/api"
)

// Directory keeps ids of the other connected clients.
// It is best effort, a peer may be gone by the time it is called.
type Directory struct {
	mu    sync.RWMutex
	self  api.Id
	peers map[api.Id]struct{}
}

func NewDirectory() *Directory { return &Directory{peers: map[api.Id]struct{}{}} }

// Reset starts over with a new own id and the initial list of peers.
func (d *Directory) Reset(self api.Id, peers []api.Id) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.self = self
	d.peers = make(map[api.Id]struct{}, len(peers))
	for _, p := range peers {
		if !p.IsEmpty() && p != self {
			d.peers[p] = struct{}{}
		}
	}
}

func (d *Directory) Self() api.Id { d.mu.RLock(); defer d.mu.RUnlock(); return d.self }

// Add puts the id into the list, own and empty ids are skipped.
func (d *Directory) Add(id api.Id) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id.IsEmpty() || id == d.self {
		return false
	}
	if _, ok := d.peers[id]; ok {
		return false
	}
	d.peers[id] = struct{}{}
	return true
}

func (d *Directory) Remove(id api.Id) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.peers[id]; !ok {
		return false
	}
	delete(d.peers, id)
	return true
}

func (d *Directory) Has(id api.Id) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.peers[id]
	return ok
}

// Snapshot returns sorted ids.
func (d *Directory) Snapshot() []api.Id {
	d.mu.RLock()
	list := make([]api.Id, 0, len(d.peers))
	for id := range d.peers {
		list = append(list, id)
	}
	d.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Watch polls the directory and calls fn with every changed list
// until the context is done.
func (d *Directory) Watch(ctx context.Context, every time.Duration, fn func([]api.Id)) {
	if every <= 0 {
		every = time.Second
	}
	last := d.Snapshot()
	fn(last)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if now := d.Snapshot(); !same(last, now) {
				last = now
				fn(now)
			}
		}
	}
}

func same(a, b []api.Id) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
