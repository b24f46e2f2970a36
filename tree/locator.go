package tree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// pointGrid is a uniform hash grid over 3D points supporting
// incremental insertion and nearest-neighbor queries. Cell width is
// chosen by the caller to match the query scale.
type pointGrid struct {
	cellWidth float64
	cells     map[[3]int][]int32
	pts       []r3.Vec
}

func newPointGrid(cellWidth float64) *pointGrid {
	return &pointGrid{
		cellWidth: cellWidth,
		cells:     make(map[[3]int][]int32),
	}
}

func (g *pointGrid) cellOf(p r3.Vec) [3]int {
	return [3]int{
		int(math.Floor(p.X / g.cellWidth)),
		int(math.Floor(p.Y / g.cellWidth)),
		int(math.Floor(p.Z / g.cellWidth)),
	}
}

// Insert adds p and returns its index.
func (g *pointGrid) Insert(p r3.Vec) int32 {
	id := int32(len(g.pts))
	g.pts = append(g.pts, p)
	c := g.cellOf(p)
	g.cells[c] = append(g.cells[c], id)
	return id
}

func (g *pointGrid) Len() int { return len(g.pts) }

// Nearest returns the index of the point closest to p for which
// accept returns true, and its distance. accept may be nil. Returns
// -1 when the grid holds no acceptable point.
func (g *pointGrid) Nearest(p r3.Vec, accept func(int32) bool) (int32, float64) {
	if len(g.pts) == 0 {
		return -1, math.Inf(1)
	}

	center := g.cellOf(p)
	best, bestD := int32(-1), math.Inf(1)

	// Scan outward ring by ring. Once a candidate exists, one extra
	// ring guarantees nothing closer hides across a cell boundary.
	maxR := g.maxRing(center)
	for r := 0; r <= maxR; r++ {
		g.scanRing(center, r, p, accept, &best, &bestD)
		if best >= 0 && float64(r)*g.cellWidth > bestD {
			break
		}
	}
	return best, bestD
}

func (g *pointGrid) maxRing(center [3]int) int {
	max := 0
	for c := range g.cells {
		for d := 0; d < 3; d++ {
			r := c[d] - center[d]
			if r < 0 {
				r = -r
			}
			if r > max {
				max = r
			}
		}
	}
	return max
}

func (g *pointGrid) scanRing(
	center [3]int, r int, p r3.Vec,
	accept func(int32) bool, best *int32, bestD *float64,
) {
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				onShell := dx == r || dx == -r ||
					dy == r || dy == -r || dz == r || dz == -r
				if r > 0 && !onShell {
					continue
				}
				c := [3]int{center[0] + dx, center[1] + dy, center[2] + dz}
				for _, id := range g.cells[c] {
					if accept != nil && !accept(id) {
						continue
					}
					d := r3.Norm(r3.Sub(g.pts[id], p))
					if d < *bestD {
						*best, *bestD = id, d
					}
				}
			}
		}
	}
}
