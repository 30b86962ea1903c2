package store

import (
	"sync"

	"github.com/aaronzipp/battleship/internal/game"
	"github.com/aaronzipp/battleship/internal/models"
)

// Registry maps session codes to sessions and participants to the code of
// the one session they belong to. Both maps change together.
type Registry struct {
	sessions     map[string]*game.Session
	participants map[string]string
	mu           sync.RWMutex
	newCode      func() string
	coin         func() bool
}

// Option configures a Registry
type Option func(*Registry)

// WithCodeGenerator replaces the session code generator
func WithCodeGenerator(fn func() string) Option {
	return func(r *Registry) { r.newCode = fn }
}

// WithCoin replaces the first-turn coin flip for new sessions
func WithCoin(fn func() bool) Option {
	return func(r *Registry) { r.coin = fn }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:     make(map[string]*game.Session),
		participants: make(map[string]string),
		newCode:      game.GenerateSessionCode,
		coin:         game.FlipCoin,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens a new session hosted by hostID, leaving any session hostID
// was in before.
func (r *Registry) Create(hostID string) *game.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(hostID)

	code := r.uniqueCodeLocked()
	s := game.NewSession(code, hostID, r.coin)
	r.sessions[code] = s
	r.participants[hostID] = code
	return s
}

func (r *Registry) uniqueCodeLocked() string {
	for {
		code := r.newCode()
		if _, exists := r.sessions[code]; !exists {
			return code
		}
	}
}

// Join seats participantID as guest of the session with the given code.
// The code is matched case-insensitively.
func (r *Registry) Join(code, participantID string) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[game.NormalizeCode(code)]
	if !exists {
		return nil, game.ErrSessionNotFound
	}
	if s.Participant(participantID) != nil {
		return nil, game.ErrAlreadyInSession
	}
	if s.IsFull() {
		return nil, game.ErrSessionFull
	}

	r.removeLocked(participantID)

	if err := s.AddGuest(participantID); err != nil {
		return nil, err
	}
	r.participants[participantID] = s.ID
	return s, nil
}

// Get retrieves a session by code
func (r *Registry) Get(code string) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, exists := r.sessions[game.NormalizeCode(code)]
	return s, exists
}

// Exists checks if a session code is in use
func (r *Registry) Exists(code string) bool {
	_, exists := r.Get(code)
	return exists
}

// SessionOf returns the session participantID currently belongs to
func (r *Registry) SessionOf(participantID string) (*game.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.participants[participantID]
	if !ok {
		return nil, false
	}
	s, exists := r.sessions[code]
	return s, exists
}

// CodeOf returns the code of participantID's current session
func (r *Registry) CodeOf(participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.participants[participantID]
	return code, ok
}

// Remove permanently detaches participantID from its session. It reports
// the session it left and whether that session was deleted for being empty.
func (r *Registry) Remove(participantID string) (*game.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(participantID)
}

func (r *Registry) removeLocked(participantID string) (*game.Session, bool) {
	code, ok := r.participants[participantID]
	if !ok {
		return nil, false
	}
	delete(r.participants, participantID)

	s, exists := r.sessions[code]
	if !exists {
		return nil, false
	}
	s.RemoveParticipant(participantID)
	if !s.IsEmpty() {
		return s, false
	}

	delete(r.sessions, code)
	for _, id := range s.ParticipantIDs() {
		if r.participants[id] == code {
			delete(r.participants, id)
		}
	}
	return s, true
}

// HandleDisconnect marks participantID as away without giving up its seat.
// It returns the session and the opponent to notify ("" when alone).
func (r *Registry) HandleDisconnect(participantID string) (*game.Session, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.participants[participantID]
	if !ok {
		return nil, "", false
	}
	s, exists := r.sessions[code]
	if !exists {
		return nil, "", false
	}
	s.SetConnected(participantID, false)
	return s, s.OpponentID(participantID), true
}

// HandleReconnect restores participantID into the session with the given
// code, provided it still holds a seat there and has not moved on to
// another session.
func (r *Registry) HandleReconnect(participantID, code string) (*game.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = game.NormalizeCode(code)
	s, exists := r.sessions[code]
	if !exists {
		return nil, false
	}
	p := s.Participant(participantID)
	if p == nil {
		return nil, false
	}
	if current, ok := r.participants[participantID]; ok && current != code {
		return nil, false
	}
	p.SetConnected(true)
	r.participants[participantID] = code
	return s, true
}

// Stats reports how many sessions and members are tracked
func (r *Registry) Stats() models.Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.Stats{
		ActiveSessions:     len(r.sessions),
		ActiveParticipants: len(r.participants),
	}
}
