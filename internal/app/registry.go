package app

import (
	"context"
	"sync"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	RoomID  domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry is the explicit connection-to-room relation. Room membership is
// never inferred from transport internals; this map is the single source.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	names    map[core.SessionID]string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		names:    make(map[core.SessionID]string),
	}
}

// BindSignal registers a freshly connected session. Rebinding an already
// known sid (a reconnect racing its own stale socket) inherits the room
// association and retires the previous connection so its pump exits.
func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	old := r.sessions[sid]
	e := &sessionEntry{Session: sess, Cancel: cancel}
	if old != nil {
		e.RoomID = old.RoomID
	}
	r.sessions[sid] = e
	r.mu.Unlock()

	if old != nil {
		if old.Cancel != nil {
			old.Cancel()
		}
		if old.Session != nil {
			old.Session.Signal().Close()
		}
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("rebound signal, retired previous connection")
		return
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound signal")
}

// Owns reports whether sid is still bound to sig. A pump that fails this
// check belongs to a retired connection and must not tear the session down.
func (r *Registry) Owns(sid core.SessionID, sig core.SignalConnection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	return ok && e.Session != nil && e.Session.Signal() == sig
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	delete(r.names, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// UpdateName remembers the display name a connection last used, so whoami
// works before any room is joined.
func (r *Registry) UpdateName(sid core.SessionID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[sid] = name
}

func (r *Registry) NameOf(sid core.SessionID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[sid]
}

// RoomOf reports the room a connection currently belongs to.
func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

func (r *Registry) UpdateRoom(sid core.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.RoomID = roomID
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.RoomID = ""
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed room association")
}

type regSnap struct {
	SID     core.SessionID
	Session core.MemberSession
}

// MembersOfRoom snapshots every connection currently associated with a room.
// Broadcasters iterate the result without holding the registry lock.
func (r *Registry) MembersOfRoom(roomID domain.RoomID) []regSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]regSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.RoomID == roomID {
			out = append(out, regSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
