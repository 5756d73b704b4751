// Package protocol defines the wire format shared by the signal adapter and
// the client coordinator. Every message carries a type tag; the set is
// closed, there is no dynamic event registration.
package protocol

import (
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

// Commands (client -> server). Room-scoped commands address the room the
// connection currently belongs to; only join names a room explicitly.
const (
	CmdCreateRoom = "create_room"
	CmdJoin       = "join"
	CmdLeave      = "leave"
	CmdVote       = "vote"
	CmdReveal     = "reveal"
	CmdReset      = "reset"
	CmdScale      = "scale"
	CmdSpectator  = "spectator"
	CmdWhoAmI     = "whoami"
	CmdPing       = "ping"
)

// Events (server -> client).
const (
	EvtRoomCreated           = "room_created"
	EvtRoomState             = "room_state"
	EvtLeft                  = "left"
	EvtPong                  = "pong"
	EvtWhoAmI                = "whoami"
	EvtError                 = "error"
	EvtParticipantJoined     = "participant_joined"
	EvtParticipantLeft       = "participant_left"
	EvtParticipantVoted      = "participant_voted"
	EvtParticipantVotedValue = "participant_voted_value"
	EvtVotesRevealed         = "votes_revealed"
	EvtVotingReset           = "voting_reset"
	EvtScaleUpdated          = "scale_updated"
	EvtParticipantUpdated    = "participant_updated"
)

// Error codes surfaced in ErrorEvent.Code.
const (
	CodeBadPayload      = "bad_payload"
	CodeNotInRoom       = "not_in_room"
	CodeRoomNotFound    = "room_not_found"
	CodeParticipantGone = "participant_not_found"
	CodeNotCreator      = "not_creator"
	CodeSpectator       = "spectator"
	CodeRoundClosed     = "round_closed"
	CodeInvalidVote     = "invalid_vote"
	CodeEmptyScale      = "empty_scale"
	CodeInvalidName     = "invalid_name"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

// Envelope is the minimal view used for dispatch.
type Envelope struct {
	Type string `json:"type"`
}

type CreateRoomRequest struct {
	Type  string              `json:"type"`
	Name  string              `json:"name"`
	Scale *domain.ScaleConfig `json:"scaleConfig,omitempty"`
}

type JoinRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Name string `json:"name"`
}

type VoteRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ScaleRequest struct {
	Type  string             `json:"type"`
	Scale domain.ScaleConfig `json:"scaleConfig"`
}

// ErrorEvent is a structured, recoverable failure for the issuing
// connection. Message is human-readable; Code is stable.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

type RoomCreatedEvent struct {
	Type   string            `json:"type"`
	RoomID string            `json:"roomId"`
	Room   core.RoomSnapshot `json:"room"`
}

// RoomStateEvent is the authoritative snapshot sent on join and rejoin.
// Clients replace their local state with it wholesale.
type RoomStateEvent struct {
	Type string            `json:"type"`
	Room core.RoomSnapshot `json:"room"`
}

type ParticipantJoinedEvent struct {
	Type        string              `json:"type"`
	RoomID      string              `json:"roomId"`
	Participant core.ParticipantDTO `json:"participant"`
}

// ParticipantLeftEvent carries the room's current creator id so clients
// converge after an ownership transfer.
type ParticipantLeftEvent struct {
	Type          string               `json:"type"`
	RoomID        string               `json:"roomId"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	Name          string               `json:"participantName"`
	CreatorID     domain.ParticipantID `json:"creatorId"`
}

// ParticipantVotedEvent announces the fact of voting only.
type ParticipantVotedEvent struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	HasVoted      bool                 `json:"hasVoted"`
}

// ParticipantVotedValueEvent additionally carries the token. It is sent to
// the creator's connection only, the one deliberate asymmetry here.
type ParticipantVotedValueEvent struct {
	Type          string               `json:"type"`
	ParticipantID domain.ParticipantID `json:"participantId"`
	HasVoted      bool                 `json:"hasVoted"`
	Value         string               `json:"voteValue"`
}

type VotesRevealedEvent struct {
	Type         string                `json:"type"`
	Participants []core.ParticipantDTO `json:"participants"`
	Statistics   *domain.Statistics    `json:"statistics"`
}

type VotingResetEvent struct {
	Type          string                `json:"type"`
	Participants  []core.ParticipantDTO `json:"participants"`
	VotesRevealed bool                  `json:"votesRevealed"`
	Statistics    *domain.Statistics    `json:"statistics"`
}

type ScaleUpdatedEvent struct {
	Type         string                `json:"type"`
	ScaleConfig  domain.ScaleConfig    `json:"votingScaleConfig"`
	VotingCards  []string              `json:"votingCards"`
	Participants []core.ParticipantDTO `json:"participants"`
	Message      string                `json:"message"`
}

type ParticipantUpdatedEvent struct {
	Type        string              `json:"type"`
	Participant core.ParticipantDTO `json:"participant"`
}

type WhoAmIEvent struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	RoomID string `json:"roomId,omitempty"`
}
