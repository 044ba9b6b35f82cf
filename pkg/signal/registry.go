package signal

import (
	"errors"
	"sort"
	"sync"

	"github.com/giongto35/cloud-call/pkg/api"
)

// Channel is the send side of one client connection.
// Send must not block.
type Channel interface {
	Send(data []byte) error
}

var (
	ErrDuplicateId = errors.New("duplicate client id")
	ErrEmptyId     = errors.New("empty client id")
)

// Registry keeps connected clients by their ids.
// An entry exists only while the client connection is open.
type Registry struct {
	mu      sync.RWMutex
	clients map[api.Id]Channel
}

func NewRegistry() *Registry { return &Registry{clients: map[api.Id]Channel{}} }

func (r *Registry) Register(id api.Id, ch Channel) error {
	if id.IsEmpty() {
		return ErrEmptyId
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; ok {
		return ErrDuplicateId
	}
	r.clients[id] = ch
	return nil
}

// Unregister removes the client and tells if it was there.
func (r *Registry) Unregister(id api.Id) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[id]
	delete(r.clients, id)
	return ok
}

// Resolve finds the channel of a client, a miss is not an error.
func (r *Registry) Resolve(id api.Id) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.clients[id]
	return ch, ok
}

// Ids returns sorted ids of all the clients.
func (r *Registry) Ids() []api.Id {
	r.mu.RLock()
	ids := make([]api.Id, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ForEach calls fn for every client except the one with the id.
// The fn is called outside the lock.
func (r *Registry) ForEach(except api.Id, fn func(id api.Id, ch Channel)) {
	r.mu.RLock()
	list := make(map[api.Id]Channel, len(r.clients))
	for id, ch := range r.clients {
		if id != except {
			list[id] = ch
		}
	}
	r.mu.RUnlock()
	for id, ch := range list {
		fn(id, ch)
	}
}

func (r *Registry) Len() int { r.mu.RLock(); defer r.mu.RUnlock(); return len(r.clients) }
