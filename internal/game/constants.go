package game

import (
	"time"

	"github.com/aaronzipp/battleship/internal/models"
)

const (
	// BoardSize is the width and height of every board
	BoardSize = 10

	// MaxParticipants is the number of seats in a session
	MaxParticipants = 2

	// FleetCells is the number of cells a fully placed fleet occupies
	FleetCells = 17

	// SessionCodeLength is the length of generated session codes
	SessionCodeLength = 6

	// SessionCodeChars are the characters used for session codes (excluding ambiguous chars)
	SessionCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// ReconnectGrace is how long a disconnected participant's slot is held
	ReconnectGrace = 30 * time.Second
)

// Fleet is the ship catalog every board must place exactly once.
var Fleet = []models.ShipSpec{
	{ID: 1, Name: "Carrier", Size: 5},
	{ID: 2, Name: "Battleship", Size: 4},
	{ID: 3, Name: "Cruiser", Size: 3},
	{ID: 4, Name: "Submarine", Size: 3},
	{ID: 5, Name: "Destroyer", Size: 2},
}

// ShipSpecByID looks up a catalog entry
func ShipSpecByID(id int) (models.ShipSpec, bool) {
	for _, s := range Fleet {
		if s.ID == id {
			return s, true
		}
	}
	return models.ShipSpec{}, false
}
