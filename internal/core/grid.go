// Package core provides fundamental types and utilities for the game:
// grid geometry, overflow-aware integer arithmetic and a small screen buffer.
// It has no external dependencies so the rules built on it stay pure and testable.
package core

// Grid dimensions. Cells are addressed by a single id in [0, MaxCellID].
const (
	GridSize  = 6
	CellCount = GridSize * GridSize * GridSize
	MaxCellID = CellCount - 1
)

// Cell is a decoded grid position.
type Cell struct {
	X, Y, Z int
}

// DecodeCell converts a cell id into its 3-D coordinates.
// The id is not range checked; use ValidCell first when it matters.
func DecodeCell(id uint16) Cell {
	n := int(id)
	return Cell{
		X: n % GridSize,
		Y: (n / GridSize) % GridSize,
		Z: n / (GridSize * GridSize),
	}
}

// ID encodes the cell back into its id.
func (c Cell) ID() uint16 {
	return uint16(c.X + c.Y*GridSize + c.Z*GridSize*GridSize)
}

// InBounds reports whether every coordinate lies inside the grid.
func (c Cell) InBounds() bool {
	return c.X >= 0 && c.X < GridSize &&
		c.Y >= 0 && c.Y < GridSize &&
		c.Z >= 0 && c.Z < GridSize
}

// Manhattan returns the taxicab distance between two cells.
func (c Cell) Manhattan(other Cell) int {
	return Abs(c.X-other.X) + Abs(c.Y-other.Y) + Abs(c.Z-other.Z)
}

// ValidCell reports whether id addresses a cell of the grid.
func ValidCell(id uint16) bool {
	return id <= MaxCellID
}

// IsAdjacent reports whether two cells are face neighbours (Manhattan distance 1).
// Identical or out-of-range ids are never adjacent.
func IsAdjacent(a, b uint16) bool {
	if a == b || !ValidCell(a) || !ValidCell(b) {
		return false
	}
	return DecodeCell(a).Manhattan(DecodeCell(b)) == 1
}

var neighbourOffsets = [6]Cell{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Neighbors returns the ids adjacent to id in ascending order.
// An invalid id has no neighbours.
func Neighbors(id uint16) []uint16 {
	if !ValidCell(id) {
		return nil
	}
	c := DecodeCell(id)
	out := make([]uint16, 0, len(neighbourOffsets))
	for _, off := range neighbourOffsets {
		n := Cell{X: c.X + off.X, Y: c.Y + off.Y, Z: c.Z + off.Z}
		if n.InBounds() {
			out = append(out, n.ID())
		}
	}
	// at most six entries, insertion sort keeps this allocation-free
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Min returns the smaller of two integers.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two integers.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
