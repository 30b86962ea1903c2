package models

// Position is a board coordinate. X is the column and Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CellState is the state of a single board cell
type CellState string

const (
	CellEmpty CellState = "empty"
	CellShip  CellState = "ship"
	CellHit   CellState = "hit"
	CellMiss  CellState = "miss"
)

// ShipSpec describes one entry of the fixed ship catalog
type ShipSpec struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

// ShipInstance is a catalog ship placed on a board
type ShipInstance struct {
	ShipSpec
	Positions []Position `json:"positions"`
	Placed    bool       `json:"placed"`
	Sunk      bool       `json:"sunk"`
}

// ShipPlacement is what a client submits for one ship
type ShipPlacement struct {
	ID        int        `json:"id"`
	Positions []Position `json:"positions"`
}

// SunkShip summarizes the ship an attack just finished off
type SunkShip struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Positions []Position `json:"positions"`
}

// FireResult is the outcome of one attack
type FireResult struct {
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Hit      bool      `json:"hit"`
	Sunk     bool      `json:"sunk"`
	SunkShip *SunkShip `json:"sunkShip,omitempty"`
	GameOver bool      `json:"gameOver"`
	Winner   string    `json:"winner,omitempty"`
}
