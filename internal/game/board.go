package game

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aaronzipp/battleship/internal/models"
)

// Grid is a board's cells indexed [y][x]
type Grid [BoardSize][BoardSize]models.CellState

// Board is one participant's grid and fleet
type Board struct {
	grid  Grid
	ships map[int]*models.ShipInstance
	ready bool
}

// NewBoard returns an empty, unready board
func NewBoard() *Board {
	b := &Board{}
	b.Reset()
	return b
}

func emptyGrid() Grid {
	var g Grid
	for y := range g {
		for x := range g[y] {
			g[y][x] = models.CellEmpty
		}
	}
	return g
}

// PlaceShips places the whole fleet in one call. Any invalid placement
// rejects the call and leaves the board untouched.
func (b *Board) PlaceShips(placements []models.ShipPlacement) error {
	if b.ready {
		return ErrAlreadyPlaced
	}
	if len(placements) != len(Fleet) {
		return fmt.Errorf("%w: must place all %d ships, got %d", ErrInvalidPlacement, len(Fleet), len(placements))
	}

	grid := emptyGrid()
	ships := make(map[int]*models.ShipInstance, len(Fleet))

	for _, p := range placements {
		spec, ok := ShipSpecByID(p.ID)
		if !ok {
			return fmt.Errorf("%w: unknown ship id %d", ErrInvalidPlacement, p.ID)
		}
		if _, dup := ships[p.ID]; dup {
			return fmt.Errorf("%w: %s placed twice", ErrInvalidPlacement, spec.Name)
		}
		if len(p.Positions) != spec.Size {
			return fmt.Errorf("%w: %s must have %d positions, got %d", ErrInvalidPlacement, spec.Name, spec.Size, len(p.Positions))
		}
		if !contiguous(p.Positions) {
			return fmt.Errorf("%w: %s positions not contiguous", ErrInvalidPlacement, spec.Name)
		}
		for _, pos := range p.Positions {
			if !inBounds(pos.X, pos.Y) {
				return fmt.Errorf("%w: %s out of bounds at (%d, %d)", ErrInvalidPlacement, spec.Name, pos.X, pos.Y)
			}
			if grid[pos.Y][pos.X] != models.CellEmpty {
				return fmt.Errorf("%w: %s overlaps at (%d, %d)", ErrInvalidPlacement, spec.Name, pos.X, pos.Y)
			}
			grid[pos.Y][pos.X] = models.CellShip
		}
		ships[p.ID] = &models.ShipInstance{
			ShipSpec:  spec,
			Positions: slices.Clone(p.Positions),
			Placed:    true,
		}
	}

	b.grid = grid
	b.ships = ships
	b.ready = true
	return nil
}

// contiguous reports whether positions form one horizontal or vertical run
// of consecutive cells, in any order.
func contiguous(positions []models.Position) bool {
	if len(positions) == 0 {
		return false
	}
	first := positions[0]
	horizontal, vertical := true, true
	for _, p := range positions {
		horizontal = horizontal && p.Y == first.Y
		vertical = vertical && p.X == first.X
	}

	var coords []int
	switch {
	case horizontal:
		for _, p := range positions {
			coords = append(coords, p.X)
		}
	case vertical:
		for _, p := range positions {
			coords = append(coords, p.Y)
		}
	default:
		return false
	}

	slices.Sort(coords)
	for i := 1; i < len(coords); i++ {
		if coords[i] != coords[i-1]+1 {
			return false
		}
	}
	return true
}

// ReceiveAttack resolves a shot at (x, y)
func (b *Board) ReceiveAttack(x, y int) (models.FireResult, error) {
	if !inBounds(x, y) {
		return models.FireResult{}, fmt.Errorf("%w: (%d, %d)", ErrInvalidPosition, x, y)
	}

	switch b.grid[y][x] {
	case models.CellHit, models.CellMiss:
		return models.FireResult{}, fmt.Errorf("%w: (%d, %d)", ErrAlreadyAttacked, x, y)
	case models.CellEmpty:
		b.grid[y][x] = models.CellMiss
		return models.FireResult{X: x, Y: y}, nil
	}

	b.grid[y][x] = models.CellHit

	ship := b.shipAt(x, y)
	if ship == nil {
		panic(fmt.Errorf("%w at (%d, %d)", ErrShipNotFound, x, y))
	}

	result := models.FireResult{X: x, Y: y, Hit: true}
	if !ship.Sunk && b.allHit(ship) {
		ship.Sunk = true
		result.Sunk = true
		result.SunkShip = &models.SunkShip{
			ID:        ship.ID,
			Name:      ship.Name,
			Positions: slices.Clone(ship.Positions),
		}
	}
	result.GameOver = b.AllShipsSunk()
	return result, nil
}

func (b *Board) shipAt(x, y int) *models.ShipInstance {
	for _, s := range b.ships {
		if slices.Contains(s.Positions, models.Position{X: x, Y: y}) {
			return s
		}
	}
	return nil
}

func (b *Board) allHit(ship *models.ShipInstance) bool {
	for _, p := range ship.Positions {
		if b.grid[p.Y][p.X] != models.CellHit {
			return false
		}
	}
	return true
}

// AllShipsSunk reports whether every stored ship is sunk. It is vacuously
// true for a board that was never placed; check Ready before treating that
// as a loss.
func (b *Board) AllShipsSunk() bool {
	for _, s := range b.ships {
		if !s.Sunk {
			return false
		}
	}
	return true
}

// Ready reports whether the fleet has been placed this round
func (b *Board) Ready() bool {
	return b.ready
}

// Cell returns the state at (x, y). Out of range reads as empty.
func (b *Board) Cell(x, y int) models.CellState {
	if !inBounds(x, y) {
		return models.CellEmpty
	}
	return b.grid[y][x]
}

// Grid returns a copy of the cells
func (b *Board) Grid() Grid {
	return b.grid
}

// Ships returns copies of the placed ships ordered by id
func (b *Board) Ships() []models.ShipInstance {
	out := make([]models.ShipInstance, 0, len(b.ships))
	for _, s := range b.ships {
		c := *s
		c.Positions = slices.Clone(s.Positions)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b models.ShipInstance) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Reset clears the board for a new round
func (b *Board) Reset() {
	b.grid = emptyGrid()
	b.ships = make(map[int]*models.ShipInstance)
	b.ready = false
}
