package game

import "github.com/aaronzipp/battleship/internal/models"

// Participant is one seat in a session: an identity, a board and presence.
type Participant struct {
	ID        string
	Board     *Board
	connected bool
}

// NewParticipant creates a connected participant with an empty board
func NewParticipant(id string) *Participant {
	return &Participant{ID: id, Board: NewBoard(), connected: true}
}

// Ready mirrors the board's ready flag
func (p *Participant) Ready() bool {
	return p.Board.Ready()
}

// Connected reports presence
func (p *Participant) Connected() bool {
	return p.connected
}

// SetConnected updates presence only
func (p *Participant) SetConnected(connected bool) {
	p.connected = connected
}

// PlaceShips delegates to the board
func (p *Participant) PlaceShips(placements []models.ShipPlacement) error {
	return p.Board.PlaceShips(placements)
}

// ReceiveAttack delegates to the board
func (p *Participant) ReceiveAttack(x, y int) (models.FireResult, error) {
	return p.Board.ReceiveAttack(x, y)
}

// HasLost reports whether a placed fleet is entirely sunk
func (p *Participant) HasLost() bool {
	return p.Board.Ready() && p.Board.AllShipsSunk()
}

// Reset clears the board; identity and presence survive.
func (p *Participant) Reset() {
	p.Board.Reset()
}
