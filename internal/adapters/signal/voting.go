package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/protocol"
)

func (ctl *SignalWSController) handleVote(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p protocol.VoteRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad vote payload")
		ctl.sendError(conn, protocol.CodeBadPayload, "malformed vote")
		return
	}

	roomID, res, err := ctl.Orch.SubmitVote(sid, p.Value)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	// Room-wide: the fact of voting only. The token stays secret until
	// reveal, except for the live preview below.
	ctl.BroadcastRoom(roomID, protocol.ParticipantVotedEvent{
		Type:          protocol.EvtParticipantVoted,
		ParticipantID: res.ParticipantID,
		HasVoted:      true,
	})

	// Creator-only: the actual value, so the creator can watch the tally
	// fill in. Skipped when the creator voted for themselves.
	if core.SessionID(res.CreatorID) != sid {
		ctl.SendToSession(core.SessionID(res.CreatorID), protocol.ParticipantVotedValueEvent{
			Type:          protocol.EvtParticipantVotedValue,
			ParticipantID: res.ParticipantID,
			HasVoted:      true,
			Value:         res.Token,
		})
	}
}

func (ctl *SignalWSController) handleReveal(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	roomID, res, err := ctl.Orch.RevealVotes(sid)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	ctl.BroadcastRoom(roomID, protocol.VotesRevealedEvent{
		Type:         protocol.EvtVotesRevealed,
		Participants: res.Participants,
		Statistics:   res.Statistics,
	})
}

func (ctl *SignalWSController) handleReset(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	roomID, participants, err := ctl.Orch.ResetVoting(sid)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	ctl.BroadcastRoom(roomID, protocol.VotingResetEvent{
		Type:          protocol.EvtVotingReset,
		Participants:  participants,
		VotesRevealed: false,
		Statistics:    nil,
	})
}

func (ctl *SignalWSController) handleScale(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p protocol.ScaleRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad scale payload")
		ctl.sendError(conn, protocol.CodeBadPayload, "malformed scale")
		return
	}

	roomID, snap, err := ctl.Orch.UpdateScale(sid, p.Scale)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	ctl.BroadcastRoom(roomID, protocol.ScaleUpdatedEvent{
		Type:         protocol.EvtScaleUpdated,
		ScaleConfig:  snap.ScaleConfig,
		VotingCards:  snap.VotingCards,
		Participants: snap.Participants,
		Message:      ctl.Orch.Registry.NameOf(sid) + " changed the voting scale",
	})
}

func (ctl *SignalWSController) handleSpectator(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	roomID, dto, err := ctl.Orch.ToggleSpectator(sid)
	if err != nil {
		ctl.failOp(conn, err)
		return
	}

	ctl.BroadcastRoom(roomID, protocol.ParticipantUpdatedEvent{
		Type:        protocol.EvtParticipantUpdated,
		Participant: dto,
	})
}
