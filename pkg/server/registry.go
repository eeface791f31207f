package server

import (
	"sync"

	"github.com/dkwon/relaychat/pkg/model"
)

// Peer is the registry's view of a connected client: a line sink that can
// be closed. The concrete type wraps the client's net.Conn.
type Peer interface {
	WriteLine(line string) error
	Close() error
}

type registryEntry struct {
	sess model.Session
	peer Peer
}

// Registry is the authoritative mapping from connection to session state
// and the single source of truth for room membership. One coarse mutex
// guards every mutation and every scan, so a broadcast that starts after
// SetRoom returns is guaranteed to observe the new membership.
//
// Entries are kept in registration order; nickname lookups resolve
// duplicates to the first-registered session, deterministically, for both
// targeted delivery and room changes.
type Registry struct {
	mu      sync.Mutex
	max     int
	nextID  model.SessionID
	entries []*registryEntry
}

// NewRegistry creates a registry with the given session capacity.
// A non-positive max falls back to the protocol default.
func NewRegistry(max int) *Registry {
	if max <= 0 {
		max = model.DefaultMaxSessions
	}
	return &Registry{max: max}
}

// Register stores a new session with an empty room. It fails with
// model.ErrRegistryFull at capacity. The session is visible to broadcast
// and targeted sends as soon as Register returns.
func (r *Registry) Register(peer Peer, nickname string) (model.SessionID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.max {
		return 0, model.ErrRegistryFull
	}
	r.nextID++
	id := r.nextID
	r.entries = append(r.entries, &registryEntry{
		sess: model.Session{ID: id, Nickname: nickname},
		peer: peer,
	})
	return id, nil
}

// SetRoom overwrites the room of the first-registered session with the
// given nickname. Unknown nicknames are silently ignored: a room change
// can race with disconnection and losing that race is defined behavior.
func (r *Registry) SetRoom(nickname, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.sess.Nickname == nickname {
			e.sess.Room = room
			return
		}
	}
}

// Remove erases the session and reports the nickname and room it had.
// Safe to call from connection-close paths at any time, including
// concurrently with broadcast.
func (r *Registry) Remove(id model.SessionID) (nickname, room string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.sess.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return e.sess.Nickname, e.sess.Room, true
		}
	}
	return "", "", false
}

// FindByNickname returns a snapshot of the first-registered session with
// the given nickname.
func (r *Registry) FindByNickname(nickname string) (model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.sess.Nickname == nickname {
			return e.sess, true
		}
	}
	return model.Session{}, false
}

// RoomOf returns the current room of a session by ID.
func (r *Registry) RoomOf(id model.SessionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.sess.ID == id {
			return e.sess.Room, true
		}
	}
	return "", false
}

// SendTo delivers one line to the first-registered session with the given
// nickname. Returns model.ErrTargetNotFound when no session matches.
func (r *Registry) SendTo(nickname, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.sess.Nickname == nickname {
			return e.peer.WriteLine(line)
		}
	}
	return model.ErrTargetNotFound
}

// Broadcast delivers a line to every session whose room equals room, in
// registration order. A failed send never aborts delivery to the rest;
// the failing peer's connection is closed so its handler can run the
// normal removal path. Returns the IDs of peers whose send failed.
func (r *Registry) Broadcast(room, line string) (failed []model.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.sess.Room != room {
			continue
		}
		if err := e.peer.WriteLine(line); err != nil {
			_ = e.peer.Close()
			failed = append(failed, e.sess.ID)
		}
	}
	return failed
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
