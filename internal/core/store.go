package core

import (
	"crypto/rand"
	"sync"

	"github.com/dkeye/Poker/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	roomIDLen      = 6
	roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Store owns every live room. The outer lock guards only the id map;
// each room has its own mutex so operations on different rooms never
// serialize against each other. No operation does I/O under a lock.
type Store struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomEntry
}

type roomEntry struct {
	mu sync.Mutex
	// closed marks a room deleted while some caller still holds the entry.
	closed bool
	room   *domain.Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[domain.RoomID]*roomEntry)}
}

// CreateRoom seeds a room with exactly its creator and an open round.
func (s *Store) CreateRoom(creatorName string, creatorID domain.ParticipantID, cfg domain.ScaleConfig) (RoomSnapshot, error) {
	creator, err := domain.NewParticipant(creatorID, creatorName)
	if err != nil {
		return RoomSnapshot{}, err
	}

	room := &domain.Room{
		CreatorID:    creatorID,
		Participants: []*domain.Participant{creator},
		Scale:        domain.ResolveScale(cfg),
		Round:        domain.RoundOpen,
	}

	s.mu.Lock()
	room.ID = s.newRoomIDLocked()
	s.rooms[room.ID] = &roomEntry{room: room}
	s.mu.Unlock()

	log.Info().Str("module", "core.store").Str("room", string(room.ID)).Str("creator", creatorName).Msg("room created")
	return snapshot(room), nil
}

// newRoomIDLocked generates a short shareable token, retrying on the
// (unlikely) collision. Caller holds s.mu.
func (s *Store) newRoomIDLocked() domain.RoomID {
	buf := make([]byte, roomIDLen)
	for {
		_, _ = rand.Read(buf)
		for i, b := range buf {
			buf[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
		}
		id := domain.RoomID(buf)
		if _, exists := s.rooms[id]; !exists {
			return id
		}
	}
}

func (s *Store) entry(id domain.RoomID) (*roomEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rooms[id]
	return e, ok
}

// withRoom runs fn with the room locked. fn must not block on I/O.
func (s *Store) withRoom(id domain.RoomID, fn func(*domain.Room) error) error {
	e, ok := s.entry(id)
	if !ok {
		return ErrRoomNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrRoomNotFound
	}
	return fn(e.room)
}

// Snapshot returns the current room state, hiding vote values unless the
// round is revealed.
func (s *Store) Snapshot(id domain.RoomID) (RoomSnapshot, error) {
	var snap RoomSnapshot
	err := s.withRoom(id, func(r *domain.Room) error {
		snap = snapshot(r)
		return nil
	})
	return snap, err
}

// List reports the live rooms for the admin surface.
func (s *Store) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, e := range s.rooms {
		e.mu.Lock()
		n := len(e.room.Participants)
		closed := e.closed
		e.mu.Unlock()
		if !closed {
			out = append(out, RoomInfo{ID: id, ParticipantCount: n})
		}
	}
	return out
}

// JoinRoom adds a participant, or refreshes an existing one. A rejoin with a
// known connection identity updates the stored name and nothing else: the
// vote and spectator state survive, which is what makes reconnection
// self-healing.
func (s *Store) JoinRoom(id domain.RoomID, name string, pid domain.ParticipantID) (RoomSnapshot, error) {
	if err := domain.ValidateName(name); err != nil {
		return RoomSnapshot{}, err
	}
	var snap RoomSnapshot
	err := s.withRoom(id, func(r *domain.Room) error {
		if p := r.Participant(pid); p != nil {
			p.Name = name
			log.Info().Str("module", "core.store").Str("room", string(id)).Str("pid", string(pid)).Msg("participant rejoined")
		} else {
			p, err := domain.NewParticipant(pid, name)
			if err != nil {
				return err
			}
			r.Participants = append(r.Participants, p)
			log.Info().Str("module", "core.store").Str("room", string(id)).Str("pid", string(pid)).Msg("participant joined")
		}
		snap = snapshot(r)
		return nil
	})
	return snap, err
}

// RemoveParticipant drops the entry, reassigning ownership to the earliest
// remaining participant if the creator left, and deleting the room when it
// empties out.
func (s *Store) RemoveParticipant(id domain.RoomID, pid domain.ParticipantID) (RemoveResult, error) {
	e, ok := s.entry(id)
	if !ok {
		return RemoveResult{}, ErrRoomNotFound
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return RemoveResult{}, ErrRoomNotFound
	}
	r := e.room

	idx := -1
	for i, p := range r.Participants {
		if p.ID == pid {
			idx = i
			break
		}
	}
	if idx == -1 {
		e.mu.Unlock()
		return RemoveResult{}, ErrParticipantNotFound
	}

	res := RemoveResult{RemovedName: r.Participants[idx].Name}
	r.Participants = append(r.Participants[:idx], r.Participants[idx+1:]...)

	if len(r.Participants) == 0 {
		e.closed = true
		res.RoomDeleted = true
		e.mu.Unlock()

		s.mu.Lock()
		delete(s.rooms, id)
		s.mu.Unlock()
		log.Info().Str("module", "core.store").Str("room", string(id)).Msg("room empty, deleted")
		return res, nil
	}

	if r.CreatorID == pid {
		r.CreatorID = r.Participants[0].ID
		res.CreatorChanged = true
		log.Info().Str("module", "core.store").Str("room", string(id)).Str("creator", string(r.CreatorID)).Msg("ownership transferred")
	}
	res.Snapshot = snapshot(r)
	e.mu.Unlock()
	return res, nil
}

// SubmitVote records a token for an open round. Spectators and tokens
// outside the current scale are rejected.
func (s *Store) SubmitVote(id domain.RoomID, pid domain.ParticipantID, token string) (VoteResult, error) {
	var res VoteResult
	err := s.withRoom(id, func(r *domain.Room) error {
		p := r.Participant(pid)
		if p == nil {
			return ErrParticipantNotFound
		}
		if p.IsSpectator {
			return ErrSpectator
		}
		if r.Round == domain.RoundRevealed {
			return ErrRoundClosed
		}
		if !r.HasToken(token) {
			return ErrInvalidVote
		}
		p.SetVote(token)
		res = VoteResult{ParticipantID: pid, Token: token, CreatorID: r.CreatorID}
		return nil
	})
	return res, err
}

// RevealVotes transitions the round to revealed and computes statistics.
// Creator only.
func (s *Store) RevealVotes(id domain.RoomID, requester domain.ParticipantID) (RevealResult, error) {
	var res RevealResult
	err := s.withRoom(id, func(r *domain.Room) error {
		if r.CreatorID != requester {
			return ErrNotCreator
		}
		r.Round = domain.RoundRevealed
		r.Statistics = CalculateStatistics(r.Participants)
		res = RevealResult{
			Participants: participantDTOs(r.Participants, true),
			Statistics:   r.Statistics,
		}
		log.Info().Str("module", "core.store").Str("room", string(id)).Int("votes", r.Statistics.TotalVotes).Msg("votes revealed")
		return nil
	})
	return res, err
}

// ResetVoting clears every vote and opens a fresh round. Creator only.
func (s *Store) ResetVoting(id domain.RoomID, requester domain.ParticipantID) ([]ParticipantDTO, error) {
	var out []ParticipantDTO
	err := s.withRoom(id, func(r *domain.Room) error {
		if r.CreatorID != requester {
			return ErrNotCreator
		}
		r.ClearVotes()
		out = participantDTOs(r.Participants, false)
		return nil
	})
	return out, err
}

// UpdateScale re-resolves the scale, discards every vote and forces the
// round open, even mid-reveal. Creator only.
func (s *Store) UpdateScale(id domain.RoomID, requester domain.ParticipantID, cfg domain.ScaleConfig) (RoomSnapshot, error) {
	var snap RoomSnapshot
	err := s.withRoom(id, func(r *domain.Room) error {
		if r.CreatorID != requester {
			return ErrNotCreator
		}
		resolved := domain.ResolveScale(cfg)
		if len(resolved.Cards) == 0 {
			return ErrEmptyScale
		}
		r.Scale = resolved
		r.ClearVotes()
		log.Info().Str("module", "core.store").Str("room", string(id)).Str("kind", string(resolved.Config.Kind)).Msg("voting scale updated")
		snap = snapshot(r)
		return nil
	})
	return snap, err
}

// ToggleSpectator flips the flag. Entering spectator mode clears the vote;
// a returning spectator starts the round with no vote either way.
func (s *Store) ToggleSpectator(id domain.RoomID, pid domain.ParticipantID) (ParticipantDTO, error) {
	var dto ParticipantDTO
	err := s.withRoom(id, func(r *domain.Room) error {
		p := r.Participant(pid)
		if p == nil {
			return ErrParticipantNotFound
		}
		p.IsSpectator = !p.IsSpectator
		if p.IsSpectator {
			p.ClearVote()
		}
		dto = participantDTO(p, r.Round == domain.RoundRevealed)
		return nil
	})
	return dto, err
}

func snapshot(r *domain.Room) RoomSnapshot {
	revealed := r.Round == domain.RoundRevealed
	snap := RoomSnapshot{
		ID:            r.ID,
		CreatorID:     r.CreatorID,
		Participants:  participantDTOs(r.Participants, revealed),
		ScaleConfig:   r.Scale.Config,
		VotingCards:   append([]string(nil), r.Scale.Cards...),
		VotesRevealed: revealed,
	}
	if revealed {
		snap.Statistics = r.Statistics
	}
	return snap
}

func participantDTOs(ps []*domain.Participant, revealed bool) []ParticipantDTO {
	out := make([]ParticipantDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, participantDTO(p, revealed))
	}
	return out
}

func participantDTO(p *domain.Participant, revealed bool) ParticipantDTO {
	dto := ParticipantDTO{
		ID:          p.ID,
		Name:        p.Name,
		HasVoted:    p.HasVoted,
		IsSpectator: p.IsSpectator,
	}
	if revealed && p.CurrentVote != nil {
		v := *p.CurrentVote
		dto.CurrentVote = &v
	}
	return dto
}
