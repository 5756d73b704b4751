package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/protocol"
)

func (ctl *SignalWSController) handleCreateRoom(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	if !ctl.limiter.Allow(sid) {
		ctl.sendError(conn, protocol.CodeRateLimited, "too many room attempts, slow down")
		return
	}

	var p protocol.CreateRoomRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create_room payload")
		ctl.sendError(conn, protocol.CodeBadPayload, "malformed create_room")
		return
	}

	cfg := domain.DefaultScaleConfig()
	if p.Scale != nil {
		cfg = *p.Scale
	}

	snap, left, err := ctl.Orch.CreateRoom(sid, p.Name, cfg)
	ctl.announceLeave(sid, left)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(snap.ID)).Msg("room created")
	ctl.sendJSON(conn, protocol.RoomCreatedEvent{
		Type:   protocol.EvtRoomCreated,
		RoomID: string(snap.ID),
		Room:   snap,
	})
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	if !ctl.limiter.Allow(sid) {
		ctl.sendError(conn, protocol.CodeRateLimited, "too many join attempts, slow down")
		return
	}

	var p protocol.JoinRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, protocol.CodeBadPayload, "malformed join")
		return
	}

	roomID := domain.RoomID(p.Room)
	wasMember := false
	if current, ok := ctl.Orch.Registry.RoomOf(sid); ok && current == roomID {
		wasMember = true
	}

	snap, left, err := ctl.Orch.Join(sid, roomID, p.Name)
	ctl.announceLeave(sid, left)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	// The joiner gets the authoritative snapshot; on a rejoin the peers
	// already know this participant, so nothing is announced.
	ctl.sendJSON(conn, protocol.RoomStateEvent{Type: protocol.EvtRoomState, Room: snap})

	if !wasMember {
		if p := findParticipant(snap, domain.ParticipantID(sid)); p != nil {
			evt := protocol.ParticipantJoinedEvent{
				Type:        protocol.EvtParticipantJoined,
				RoomID:      string(snap.ID),
				Participant: *p,
			}
			ctl.broadcastExcept(roomID, sid, evt)
		}
	}
}

func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	left, _ := ctl.Orch.Leave(sid)
	ctl.sendJSON(conn, map[string]any{"type": protocol.EvtLeft})
	ctl.announceLeave(sid, left)
}

// onDisconnect runs when a read pump exits. Cleanup is scoped to the
// connection that died: when sid has already rebound to a newer connection,
// the stale pump leaves the live session and its room membership alone.
// Otherwise the removal commits first; if the room died with the last
// participant there is nobody to notify.
func (ctl *SignalWSController) onDisconnect(sid core.SessionID, conn *WsSignalConn) {
	if !ctl.Orch.Registry.Owns(sid, conn) {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("stale connection closed, session already rebound")
		return
	}
	left, _ := ctl.Orch.OnDisconnect(sid)
	ctl.announceLeave(sid, left)
}

func (ctl *SignalWSController) announceLeave(sid core.SessionID, left *app.LeaveOutcome) {
	if left == nil || left.Result.RoomDeleted {
		return
	}
	ctl.BroadcastRoom(left.RoomID, protocol.ParticipantLeftEvent{
		Type:          protocol.EvtParticipantLeft,
		RoomID:        string(left.RoomID),
		ParticipantID: domain.ParticipantID(sid),
		Name:          left.Result.RemovedName,
		CreatorID:     left.Result.Snapshot.CreatorID,
	})
}

func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	resp := protocol.WhoAmIEvent{
		Type: protocol.EvtWhoAmI,
		Name: ctl.Orch.Registry.NameOf(sid),
	}
	if roomID, ok := ctl.Orch.Registry.RoomOf(sid); ok {
		resp.RoomID = string(roomID)
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) broadcastExcept(roomID domain.RoomID, except core.SessionID, v any) {
	for _, snap := range ctl.Orch.Registry.MembersOfRoom(roomID) {
		if snap.SID == except {
			continue
		}
		ctl.sendJSON(snap.Session.Signal(), v)
	}
}

func findParticipant(snap core.RoomSnapshot, id domain.ParticipantID) *core.ParticipantDTO {
	for i := range snap.Participants {
		if snap.Participants[i].ID == id {
			return &snap.Participants[i]
		}
	}
	return nil
}
