package core

import "github.com/dkeye/Poker/internal/domain"

// Frame is a raw outbound payload (JSON-encoded event).
type Frame []byte

// SessionID identifies one live connection. It doubles as the participant
// identity inside a room.
type SessionID string

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession is what the registry stores and the broadcaster fans out to.
type MemberSession interface {
	Signal() SignalConnection
}

// ParticipantDTO is a read-only participant view. CurrentVote is nil until
// the round is revealed so values never leak through a snapshot.
type ParticipantDTO struct {
	ID          domain.ParticipantID `json:"id"`
	Name        string               `json:"name"`
	CurrentVote *string              `json:"currentVote"`
	HasVoted    bool                 `json:"hasVoted"`
	IsSpectator bool                 `json:"isSpectator"`
}

// RoomSnapshot is the full room state handed to transport. It is always a
// copy; the live room never leaves the store.
type RoomSnapshot struct {
	ID            domain.RoomID        `json:"id"`
	CreatorID     domain.ParticipantID `json:"creatorId"`
	Participants  []ParticipantDTO     `json:"participants"`
	ScaleConfig   domain.ScaleConfig   `json:"votingScaleConfig"`
	VotingCards   []string             `json:"votingCards"`
	VotesRevealed bool                 `json:"votesRevealed"`
	Statistics    *domain.Statistics   `json:"statistics"`
}

type RoomInfo struct {
	ID               domain.RoomID `json:"id"`
	ParticipantCount int           `json:"participantCount"`
}

// RemoveResult reports what a participant removal did to the room.
// When RoomDeleted is set there is nobody left to broadcast to.
type RemoveResult struct {
	RoomDeleted    bool
	RemovedName    string
	CreatorChanged bool
	Snapshot       RoomSnapshot
}

// VoteResult carries what the broadcaster needs: the room-wide fact and the
// creator-only value.
type VoteResult struct {
	ParticipantID domain.ParticipantID
	Token         string
	CreatorID     domain.ParticipantID
}

// RevealResult is the revealed participant list plus derived statistics.
type RevealResult struct {
	Participants []ParticipantDTO
	Statistics   *domain.Statistics
}
