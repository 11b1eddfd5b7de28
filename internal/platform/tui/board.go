package tui

import (
	"fmt"
	"sort"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/core"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// Board layout constants
const (
	cellWidth   = 5
	layerWidth  = core.GridSize*cellWidth + 2
	layerHeight = core.GridSize + 2
	layerGap    = 1
)

// Labels maps known identities to display names.
type Labels map[address.Address]string

// Name returns the label for a, falling back to its short hex form.
func (l Labels) Name(a address.Address) string {
	if n, ok := l[a]; ok {
		return n
	}
	return a.Short()
}

// BoardOptions controls DrawBoard.
type BoardOptions struct {
	Layers []int // z layers to draw, all when empty
	PerRow int   // layers per row, 3 when zero
	Labels Labels
}

// cellView aggregates every stack on one cell.
type cellView struct {
	owners  map[address.Address]bool
	owner   address.Address
	units   uint64
	reapers uint64
}

// DrawBoard draws the grid one z layer per box, followed by a legend of
// owners. Each occupied cell shows its unit count in the owner's color;
// a trailing '*' marks reapers and cells held by several owners show the
// owner count in red.
func DrawBoard(stacks []game.AgentStack, opts BoardOptions) *core.Screen {
	layers := opts.Layers
	if len(layers) == 0 {
		layers = make([]int, core.GridSize)
		for z := range layers {
			layers[z] = z
		}
	}
	perRow := opts.PerRow
	if perRow <= 0 {
		perRow = 3
	}
	if perRow > len(layers) {
		perRow = len(layers)
	}

	cells := make(map[uint16]*cellView)
	totals := make(map[address.Address]uint64)
	for _, s := range stacks {
		if s.Empty() || !core.ValidCell(s.CellID) {
			continue
		}
		cv := cells[s.CellID]
		if cv == nil {
			cv = &cellView{owners: make(map[address.Address]bool), owner: s.Owner}
			cells[s.CellID] = cv
		}
		cv.owners[s.Owner] = true
		cv.units = core.SatAdd(cv.units, s.Units)
		cv.reapers = core.SatAdd(cv.reapers, s.Reapers)
		totals[s.Owner] = core.SatAdd(totals[s.Owner], s.Units)
	}

	owners := make([]address.Address, 0, len(totals))
	for a := range totals {
		owners = append(owners, a)
	}
	sort.Slice(owners, func(i, j int) bool {
		return opts.Labels.Name(owners[i]) < opts.Labels.Name(owners[j])
	})

	rows := (len(layers) + perRow - 1) / perRow
	width := perRow*(layerWidth+layerGap) - layerGap
	height := rows * layerHeight
	if len(owners) > 0 {
		height += 1 + len(owners)
	}
	scr := core.NewScreen(width, height)

	for i, z := range layers {
		bx := (i % perRow) * (layerWidth + layerGap)
		by := (i / perRow) * layerHeight
		drawLayer(scr, bx, by, z, cells)
	}

	y := rows*layerHeight + 1
	for _, a := range owners {
		c := core.OwnerColor(a[0])
		scr.SetColored(0, y, '■', c)
		scr.DrawTextColored(2, y, fmt.Sprintf("%s  %s units", opts.Labels.Name(a), Abbrev(totals[a])), c)
		y++
	}
	return scr
}

func drawLayer(scr *core.Screen, bx, by, z int, cells map[uint16]*cellView) {
	scr.DrawBox(core.NewRect(bx, by, layerWidth, layerHeight), core.ColorGray)
	scr.DrawTextColored(bx+2, by, fmt.Sprintf(" z=%d ", z), core.ColorWhite)

	for y := range core.GridSize {
		for x := range core.GridSize {
			id := core.Cell{X: x, Y: y, Z: z}.ID()
			cx := bx + 1 + x*cellWidth
			cy := by + 1 + y

			cv := cells[id]
			switch {
			case cv == nil:
				scr.SetColored(cx+2, cy, '·', core.ColorGray)
			case len(cv.owners) > 1:
				scr.DrawTextColored(cx, cy, fmt.Sprintf("%4s", fmt.Sprintf("x%d", len(cv.owners))), core.ColorBrightRed)
			default:
				c := core.OwnerColor(cv.owner[0])
				scr.DrawTextColored(cx, cy, fmt.Sprintf("%4s", Abbrev(cv.units)), c)
				if cv.reapers > 0 {
					scr.SetColored(cx+4, cy, '*', c)
				}
			}
		}
	}
}

// Abbrev formats n in at most four characters: 1234, 12k, 340M.
func Abbrev(n uint64) string {
	if n < 10_000 {
		return fmt.Sprintf("%d", n)
	}
	units := []struct {
		div    uint64
		suffix string
	}{
		{1_000, "k"},
		{1_000_000, "M"},
		{1_000_000_000, "G"},
		{1_000_000_000_000, "T"},
		{1_000_000_000_000_000, "P"},
		{1_000_000_000_000_000_000, "E"},
	}
	for i, u := range units {
		v := n / u.div
		if v < 1_000 || i == len(units)-1 {
			return fmt.Sprintf("%d%s", v, u.suffix)
		}
	}
	return fmt.Sprintf("%d", n)
}
