// Package domain contains entities without transport or lifecycle logic.
package domain

import "errors"

const MaxNameLen = 36

var (
	ErrNameTooLong = errors.New("display name too long")
	ErrNameEmpty   = errors.New("display name empty")
)

// ParticipantID is the connection identity of one participant. It is stable
// for the lifetime of a single connection and unique within a room.
type ParticipantID string

type Participant struct {
	ID          ParticipantID `json:"id"`
	Name        string        `json:"name"`
	CurrentVote *string       `json:"currentVote"`
	HasVoted    bool          `json:"hasVoted"`
	IsSpectator bool          `json:"isSpectator"`
}

// NewParticipant validates the display name and keeps struct literals out of
// adapters.
func NewParticipant(id ParticipantID, name string) (*Participant, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return &Participant{ID: id, Name: name}, nil
}

func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// ClearVote resets the vote state for a new round.
func (p *Participant) ClearVote() {
	p.CurrentVote = nil
	p.HasVoted = false
}

// SetVote records a vote token. Token membership in the room scale is the
// room's responsibility, not the participant's.
func (p *Participant) SetVote(token string) {
	v := token
	p.CurrentVote = &v
	p.HasVoted = true
}
