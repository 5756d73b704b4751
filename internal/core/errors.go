package core

import "errors"

// Recoverable operation failures. A rejected operation leaves the room
// exactly as it was.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotCreator          = errors.New("only the room creator may do this")
	ErrSpectator           = errors.New("spectators cannot vote")
	ErrRoundClosed         = errors.New("voting has ended for this round")
	ErrInvalidVote         = errors.New("vote is not in the current scale")
	ErrEmptyScale          = errors.New("voting scale cannot be empty")
)
