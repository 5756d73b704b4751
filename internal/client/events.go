package client

import (
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/protocol"
)

// Handlers receives server events. They are registered once on the Client
// and survive every reconnect, so resubscription is idempotent by
// construction: there is nothing to re-register and nothing to duplicate.
// Nil fields are skipped. Callbacks run on the read loop goroutine.
type Handlers struct {
	// OnStatus fires on every state machine transition.
	OnStatus func(Status)

	// OnRoomState delivers the authoritative snapshot after a join or
	// rejoin. Local state must be replaced with it wholesale.
	OnRoomState func(core.RoomSnapshot)

	OnRoomCreated        func(core.RoomSnapshot)
	OnParticipantJoined  func(protocol.ParticipantJoinedEvent)
	OnParticipantLeft    func(protocol.ParticipantLeftEvent)
	OnParticipantVoted   func(protocol.ParticipantVotedEvent)
	OnVotePreview        func(protocol.ParticipantVotedValueEvent)
	OnVotesRevealed      func(protocol.VotesRevealedEvent)
	OnVotingReset        func(protocol.VotingResetEvent)
	OnScaleUpdated       func(protocol.ScaleUpdatedEvent)
	OnParticipantUpdated func(protocol.ParticipantUpdatedEvent)

	// OnError surfaces a rejected command (code, human message).
	OnError func(code, message string)

	// OnRejoinFailed fires when a remembered room could not be rejoined.
	// The client forgets the room id but keeps the name for a manual retry.
	OnRejoinFailed func(roomID, reason string)

	// OnNameNeeded fires when a share-link room id is known but no display
	// name is; the join waits for SetName.
	OnNameNeeded func(roomID string)
}
