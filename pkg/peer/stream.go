package peer

import "sync"

// RemoteStream collects all the inbound tracks of a call.
// Tracks are only added during a call and dropped all at once on reset.
type RemoteStream struct {
	mu     sync.Mutex
	tracks []Track
}

// Add appends the track unless a track with the same id is already there.
func (r *RemoteStream) Add(track Track) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id := track.ID(); id != "" {
		for _, t := range r.tracks {
			if t.ID() == id && t.Kind() == track.Kind() {
				return false
			}
		}
	}
	r.tracks = append(r.tracks, track)
	return true
}

func (r *RemoteStream) Tracks() []Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Track(nil), r.tracks...)
}

func (r *RemoteStream) Len() int { r.mu.Lock(); defer r.mu.Unlock(); return len(r.tracks) }

func (r *RemoteStream) IsEmpty() bool { return r.Len() == 0 }

func (r *RemoteStream) Reset() { r.mu.Lock(); r.tracks = nil; r.mu.Unlock() }
