package domain

type RoomID string

// RoundState is the voting cycle state of a room.
type RoundState string

const (
	RoundOpen     RoundState = "open"
	RoundRevealed RoundState = "revealed"
)

// Room is one estimation session. Participants keep insertion order so that
// ownership transfer can pick the longest-tenured remaining member.
type Room struct {
	ID           RoomID
	CreatorID    ParticipantID
	Participants []*Participant
	Scale        ResolvedScale
	Round        RoundState
	Statistics   *Statistics
}

// Statistics is derived on reveal and cleared on reset or scale change.
// Non-numeric tokens count in TotalVotes and Distribution only.
type Statistics struct {
	TotalVotes   int            `json:"totalVotes"`
	Distribution map[string]int `json:"voteDistribution"`
	Average      float64        `json:"average"`
	Mode         []string       `json:"mode"`
	HighestVote  *float64       `json:"highestVote"`
	LowestVote   *float64       `json:"lowestVote"`
}

// Participant returns the entry for id, or nil.
func (r *Room) Participant(id ParticipantID) *Participant {
	for _, p := range r.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// HasToken reports whether token is part of the room's resolved scale.
func (r *Room) HasToken(token string) bool {
	for _, t := range r.Scale.Cards {
		if t == token {
			return true
		}
	}
	return false
}

// ClearVotes resets every participant for a fresh open round.
func (r *Room) ClearVotes() {
	for _, p := range r.Participants {
		p.ClearVote()
	}
	r.Round = RoundOpen
	r.Statistics = nil
}
