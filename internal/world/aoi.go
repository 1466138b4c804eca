package world

import (
	"math"

	"github.com/l1jgo/spellcast/internal/core/ecs"
)

// AOIGrid implements a cell-based Area of Interest index for one region.
// Cell size matches the default visibility range so a 3x3 neighbourhood
// covers it; larger radii widen the scan.
// Accessed only from the region's loop, no locks.

const cellSize float32 = 40

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v float32) int32 {
	return int32(math.Floor(float64(v / cellSize)))
}

// AOIGrid tracks which objects are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) key(p Vector3) cellKey {
	return cellKey{cx: toCellCoord(p.X), cy: toCellCoord(p.Y)}
}

// Add places an object into the grid.
func (g *AOIGrid) Add(id ecs.EntityID, p Vector3) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an object out of the grid.
func (g *AOIGrid) Remove(id ecs.EntityID, p Vector3) {
	k := g.key(p)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an object's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, from, to Vector3) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// GetNearby returns every id in the cells overlapping the square of
// half-width radius around p. Caller does fine-grained distance filtering.
func (g *AOIGrid) GetNearby(p Vector3, radius float32) []ecs.EntityID {
	span := int32(math.Ceil(float64(radius / cellSize)))
	if span < 1 {
		span = 1
	}
	cx := toCellCoord(p.X)
	cy := toCellCoord(p.Y)
	var result []ecs.EntityID
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for id := range g.cells[cellKey{cx: cx + dx, cy: cy + dy}] {
				result = append(result, id)
			}
		}
	}
	return result
}
