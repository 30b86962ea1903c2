package game

import (
	"fmt"

	"github.com/aaronzipp/battleship/internal/models"
)

// Session is a two-seat match. It is not safe for concurrent use; the
// dispatcher owns every session and runs one operation at a time.
type Session struct {
	ID string

	host          *Participant
	guest         *Participant
	phase         models.Phase
	currentTurnID string
	winnerID      string
	rematch       map[string]bool
	coin          func() bool
}

// NewSession creates a session waiting for a guest. coin decides the first
// turn holder (true = host); nil uses FlipCoin.
func NewSession(id, hostID string, coin func() bool) *Session {
	if coin == nil {
		coin = FlipCoin
	}
	return &Session{
		ID:      id,
		host:    NewParticipant(hostID),
		phase:   models.PhaseWaiting,
		rematch: make(map[string]bool),
		coin:    coin,
	}
}

// Phase returns the raw phase: waiting, placement or attack
func (s *Session) Phase() models.Phase { return s.phase }

// CurrentTurnID is empty outside the attack phase
func (s *Session) CurrentTurnID() string { return s.currentTurnID }

// WinnerID is empty until a fleet is sunk
func (s *Session) WinnerID() string { return s.winnerID }

// Host returns the host participant
func (s *Session) Host() *Participant { return s.host }

// Guest returns the guest participant, or nil
func (s *Session) Guest() *Participant { return s.guest }

// AddGuest seats the second participant and opens placement
func (s *Session) AddGuest(id string) error {
	if id == s.host.ID {
		return ErrAlreadyInSession
	}
	if s.guest != nil {
		return ErrGuestTaken
	}
	s.guest = NewParticipant(id)
	s.phase = models.PhasePlacement
	return nil
}

// Participant returns the seat held by id, or nil
func (s *Session) Participant(id string) *Participant {
	switch {
	case s.host.ID == id:
		return s.host
	case s.guest != nil && s.guest.ID == id:
		return s.guest
	}
	return nil
}

// Opponent returns the other seat for id, or nil
func (s *Session) Opponent(id string) *Participant {
	switch {
	case s.host.ID == id:
		return s.guest
	case s.guest != nil && s.guest.ID == id:
		return s.host
	}
	return nil
}

// OpponentID returns the other seat's id, or ""
func (s *Session) OpponentID(id string) string {
	if o := s.Opponent(id); o != nil {
		return o.ID
	}
	return ""
}

// IsHost reports whether id holds the host seat
func (s *Session) IsHost(id string) bool {
	return s.host.ID == id
}

// ParticipantIDs lists occupied seats, host first
func (s *Session) ParticipantIDs() []string {
	ids := []string{s.host.ID}
	if s.guest != nil {
		ids = append(ids, s.guest.ID)
	}
	return ids
}

// PlaceShips places id's fleet. It never changes the phase.
func (s *Session) PlaceShips(id string, placements []models.ShipPlacement) error {
	if s.phase != models.PhasePlacement {
		return ErrNotInPlacementPhase
	}
	p := s.Participant(id)
	if p == nil {
		return ErrUnknownParticipant
	}
	return p.PlaceShips(placements)
}

// BothReady reports whether both fleets are placed
func (s *Session) BothReady() bool {
	return s.guest != nil && s.host.Ready() && s.guest.Ready()
}

// StartGame moves placement to attack and flips for the first turn
func (s *Session) StartGame() error {
	if s.phase != models.PhasePlacement {
		return ErrNotInPlacementPhase
	}
	if !s.BothReady() {
		return ErrNotReady
	}
	s.phase = models.PhaseAttack
	if s.coin() {
		s.currentTurnID = s.host.ID
	} else {
		s.currentTurnID = s.guest.ID
	}
	return nil
}

// Fire resolves attackerID's shot against the opponent's board. A
// non-final shot passes the turn; the final shot records the winner.
func (s *Session) Fire(attackerID string, x, y int) (models.FireResult, error) {
	if s.phase != models.PhaseAttack {
		return models.FireResult{}, ErrNotInAttackPhase
	}
	if s.winnerID != "" {
		return models.FireResult{}, ErrSessionOver
	}
	if attackerID != s.currentTurnID {
		return models.FireResult{}, ErrNotYourTurn
	}
	defender := s.Opponent(attackerID)
	if defender == nil {
		return models.FireResult{}, ErrNoOpponent
	}

	result, err := defender.ReceiveAttack(x, y)
	if err != nil {
		return models.FireResult{}, err
	}

	if result.GameOver {
		s.winnerID = attackerID
		result.Winner = attackerID
	} else {
		s.currentTurnID = defender.ID
	}
	return result, nil
}

// RequestRematch records id's consent. It returns true once both
// participants have asked, after both boards have been reset.
func (s *Session) RequestRematch(id string) (bool, error) {
	if s.winnerID == "" {
		return false, ErrRematchUnavailable
	}
	if s.Participant(id) == nil {
		return false, ErrUnknownParticipant
	}

	s.rematch[id] = true
	if len(s.rematch) < MaxParticipants {
		return false, nil
	}

	s.host.Reset()
	if s.guest != nil {
		s.guest.Reset()
	}
	s.phase = models.PhasePlacement
	s.currentTurnID = ""
	s.winnerID = ""
	clear(s.rematch)
	return true, nil
}

// HasRequestedRematch reports whether id has consented to a rematch
func (s *Session) HasRequestedRematch(id string) bool {
	return s.rematch[id]
}

// RemoveParticipant handles a permanent departure. The host seat is held
// for reconnection; a departing guest vacates its seat and voids the round.
func (s *Session) RemoveParticipant(id string) {
	switch {
	case s.host.ID == id:
		s.host.SetConnected(false)
	case s.guest != nil && s.guest.ID == id:
		s.guest = nil
		if s.phase != models.PhaseWaiting {
			s.phase = models.PhaseWaiting
			s.host.Reset()
			s.currentTurnID = ""
			s.winnerID = ""
			clear(s.rematch)
		}
	}
}

// SetConnected updates presence for id
func (s *Session) SetConnected(id string, connected bool) {
	if p := s.Participant(id); p != nil {
		p.SetConnected(connected)
	}
}

// IsFull reports whether the guest seat is taken
func (s *Session) IsFull() bool {
	return s.guest != nil
}

// IsEmpty reports whether no seat has a connected participant
func (s *Session) IsEmpty() bool {
	return !s.host.Connected() && (s.guest == nil || !s.guest.Connected())
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s phase=%s host=%s guest=%v", s.ID, s.phase, s.host.ID, s.guest != nil)
}
