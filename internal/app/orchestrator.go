// Package app routes commands from live connections to the room store.
package app

import (
	"errors"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrNotInRoom rejects room-scoped commands from connections that have not
// joined anything.
var ErrNotInRoom = errors.New("not in a room")

// Orchestrator resolves a connection to its room and applies the store
// operation. Mutations commit before any broadcast happens; the signal
// adapter fans the returned state out afterwards.
type Orchestrator struct {
	Registry *Registry
	Rooms    *core.Store
}

// LeaveOutcome tells the adapter which room was left and what to announce.
type LeaveOutcome struct {
	RoomID domain.RoomID
	Result core.RemoveResult
}

// CreateRoom makes the caller the creator of a fresh room. A connection
// belongs to at most one room, so any previous membership is dropped first.
func (o *Orchestrator) CreateRoom(sid core.SessionID, name string, cfg domain.ScaleConfig) (core.RoomSnapshot, *LeaveOutcome, error) {
	left := o.leaveCurrent(sid)
	snap, err := o.Rooms.CreateRoom(name, domain.ParticipantID(sid), cfg)
	if err != nil {
		return core.RoomSnapshot{}, left, err
	}
	o.Registry.UpdateName(sid, name)
	o.Registry.UpdateRoom(sid, snap.ID)
	return snap, left, nil
}

// Join adds (or refreshes) the caller in roomID. Joining a new room while
// still associated with another one leaves the old room first.
func (o *Orchestrator) Join(sid core.SessionID, roomID domain.RoomID, name string) (core.RoomSnapshot, *LeaveOutcome, error) {
	var left *LeaveOutcome
	if current, ok := o.Registry.RoomOf(sid); ok && current != roomID {
		left = o.leaveCurrent(sid)
	}
	snap, err := o.Rooms.JoinRoom(roomID, name, domain.ParticipantID(sid))
	if err != nil {
		return core.RoomSnapshot{}, left, err
	}
	o.Registry.UpdateName(sid, name)
	o.Registry.UpdateRoom(sid, roomID)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(roomID)).Msg("joined room")
	return snap, left, nil
}

// Leave removes the caller from its current room, reporting what happened
// so the adapter can notify whoever is left.
func (o *Orchestrator) Leave(sid core.SessionID) (*LeaveOutcome, bool) {
	out := o.leaveCurrent(sid)
	return out, out != nil
}

// OnDisconnect is Leave plus dropping the session binding entirely.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) (*LeaveOutcome, bool) {
	out := o.leaveCurrent(sid)
	o.Registry.Unbind(sid)
	return out, out != nil
}

func (o *Orchestrator) leaveCurrent(sid core.SessionID) *LeaveOutcome {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil
	}
	res, err := o.Rooms.RemoveParticipant(roomID, domain.ParticipantID(sid))
	o.Registry.RemoveRoom(sid)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(roomID)).Msg("leave: removal failed")
		return nil
	}
	return &LeaveOutcome{RoomID: roomID, Result: res}
}

// roomScoped resolves the caller's current room for the command surface.
func (o *Orchestrator) roomScoped(sid core.SessionID) (domain.RoomID, error) {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", ErrNotInRoom
	}
	return roomID, nil
}

func (o *Orchestrator) SubmitVote(sid core.SessionID, token string) (domain.RoomID, core.VoteResult, error) {
	roomID, err := o.roomScoped(sid)
	if err != nil {
		return "", core.VoteResult{}, err
	}
	res, err := o.Rooms.SubmitVote(roomID, domain.ParticipantID(sid), token)
	return roomID, res, err
}

func (o *Orchestrator) RevealVotes(sid core.SessionID) (domain.RoomID, core.RevealResult, error) {
	roomID, err := o.roomScoped(sid)
	if err != nil {
		return "", core.RevealResult{}, err
	}
	res, err := o.Rooms.RevealVotes(roomID, domain.ParticipantID(sid))
	return roomID, res, err
}

func (o *Orchestrator) ResetVoting(sid core.SessionID) (domain.RoomID, []core.ParticipantDTO, error) {
	roomID, err := o.roomScoped(sid)
	if err != nil {
		return "", nil, err
	}
	out, err := o.Rooms.ResetVoting(roomID, domain.ParticipantID(sid))
	return roomID, out, err
}

func (o *Orchestrator) UpdateScale(sid core.SessionID, cfg domain.ScaleConfig) (domain.RoomID, core.RoomSnapshot, error) {
	roomID, err := o.roomScoped(sid)
	if err != nil {
		return "", core.RoomSnapshot{}, err
	}
	snap, err := o.Rooms.UpdateScale(roomID, domain.ParticipantID(sid), cfg)
	return roomID, snap, err
}

func (o *Orchestrator) ToggleSpectator(sid core.SessionID) (domain.RoomID, core.ParticipantDTO, error) {
	roomID, err := o.roomScoped(sid)
	if err != nil {
		return "", core.ParticipantDTO{}, err
	}
	dto, err := o.Rooms.ToggleSpectator(roomID, domain.ParticipantID(sid))
	return roomID, dto, err
}
