/*package tree grows Purkinje-like conduction networks on endocardial
surfaces with a fractal branching rule: starting from a seed vertex,
branches extend in fixed-length steps along the surface, deflect away
from the rest of the network, and split in two every generation.

The growth is randomized only through the injected random source, so a
fixed seed reproduces the same network bit for bit.
*/
package tree

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is the reduced surface a tree grows on: the full vertex slice
// of the parent mesh, the triangles of one endocardial region, and the
// index of the seed vertex. Vertex normals are area-weighted over the
// incident triangles.
type Mesh struct {
	Verts    []r3.Vec
	Tris     [][3]int32
	InitNode int

	normals []r3.Vec
	surface *pointGrid
	used    []int32 // surface vertex ids, parallel to grid insert order
}

// NewMesh validates the reduced surface and builds the projection
// structures. The connectivity must be non-empty: a region tag that
// selected no cells is an error, not an empty tree.
func NewMesh(verts []r3.Vec, tris [][3]int32, initNode int) (*Mesh, error) {
	if len(tris) == 0 {
		return nil, fmt.Errorf("surface mesh has no triangles")
	}
	if initNode < 0 || initNode >= len(verts) {
		return nil, fmt.Errorf(
			"seed vertex %d out of range (%d vertices)",
			initNode, len(verts),
		)
	}

	m := &Mesh{Verts: verts, Tris: tris, InitNode: initNode}

	m.normals = make([]r3.Vec, len(verts))
	usedSet := make(map[int32]bool)
	var meanEdge float64
	for _, tri := range m.Tris {
		a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a)) // |n| = 2*area
		for _, v := range tri {
			m.normals[v] = r3.Add(m.normals[v], n)
			usedSet[v] = true
		}
		meanEdge += r3.Norm(r3.Sub(b, a))
	}
	meanEdge /= float64(len(m.Tris))

	if !usedSet[int32(initNode)] {
		return nil, fmt.Errorf(
			"seed vertex %d is not part of the surface", initNode,
		)
	}

	for v := range m.normals {
		if n := r3.Norm(m.normals[v]); n > 0 {
			m.normals[v] = r3.Scale(1/n, m.normals[v])
		}
	}

	m.surface = newPointGrid(2 * meanEdge)
	m.used = make([]int32, 0, len(usedSet))
	for _, tri := range m.Tris {
		for _, v := range tri {
			if usedSet[v] {
				usedSet[v] = false
				m.surface.Insert(verts[v])
				m.used = append(m.used, v)
			}
		}
	}

	return m, nil
}

// project snaps a point onto the tangent plane of the nearest surface
// vertex and returns the snapped point and the local surface normal.
func (m *Mesh) project(p r3.Vec) (r3.Vec, r3.Vec) {
	id, _ := m.surface.Nearest(p, nil)
	v := m.used[id]
	n := m.normals[v]
	d := r3.Dot(r3.Sub(p, m.Verts[v]), n)
	return r3.Sub(p, r3.Scale(d, n)), n
}

// Params controls the growth. Filename is the output stem the pipeline
// appends ".vtu" to; it is carried here so a parameter bundle fully
// describes one generated tree.
type Params struct {
	Filename         string
	InitLength       float64
	NIt              int
	Length           float64
	InitialDirection r3.Vec

	// Generator constants. Zero values select the defaults.
	BranchAngle     float64 // radians
	RepulsionWeight float64
	SegmentLength   float64
	StdLength       float64
	MinLength       float64
}

func (p *Params) withDefaults() Params {
	q := *p
	if q.BranchAngle == 0 {
		q.BranchAngle = 0.15
	}
	if q.RepulsionWeight == 0 {
		q.RepulsionWeight = 0.1
	}
	if q.SegmentLength == 0 {
		q.SegmentLength = q.Length / 10
	}
	if q.StdLength == 0 {
		q.StdLength = math.Sqrt(0.2) * q.Length
	}
	if q.MinLength == 0 {
		q.MinLength = q.Length / 10
	}
	return q
}

func (p *Params) check() error {
	if p.InitLength <= 0 {
		return fmt.Errorf("initial branch length must be positive")
	}
	if p.Length <= 0 {
		return fmt.Errorf("branch length must be positive")
	}
	if p.NIt < 0 {
		return fmt.Errorf("iteration count must not be negative")
	}
	if r3.Norm(p.InitialDirection) == 0 {
		return fmt.Errorf("initial direction must not be zero")
	}
	return nil
}

// Tree is the generated line network.
type Tree struct {
	Nodes    []r3.Vec
	Segments [][2]int32
}

// branch tracks one open growth front.
type branch struct {
	id  int32  // branch id, used for collision exclusion
	tip int32  // node index of the branch end
	dir r3.Vec // unit direction at the end
}

// Grow runs the fractal growth. All randomness comes from rng.
func Grow(m *Mesh, params Params, rng *rand.Rand) (*Tree, error) {
	if err := params.check(); err != nil {
		return nil, fmt.Errorf("fractal tree parameters: %w", err)
	}
	p := params.withDefaults()

	g := &grower{
		m:     m,
		p:     p,
		rng:   rng,
		nodes: newPointGrid(math.Max(p.Length, p.SegmentLength)),
	}

	// His-bundle analogue: one straight run from the seed before any
	// branching.
	start, _ := m.project(m.Verts[m.InitNode])
	root := g.addNode(start, 0)
	dir := g.tangent(start, r3.Unit(p.InitialDirection))
	first, ok := g.growBranch(root, dir, p.InitLength, nil)
	if !ok {
		return nil, fmt.Errorf(
			"initial branch stalled after %d nodes; "+
				"check the seed location and direction", g.nodes.Len(),
		)
	}

	open := []branch{first}
	for it := 0; it < p.NIt; it++ {
		var next []branch
		for _, b := range open {
			// Two children per open end. Collisions with the mother
			// and the brother branch are ignored, as both necessarily
			// pass close to the branching point.
			exclude := []int32{b.id}
			for _, sign := range []float64{1, -1} {
				l := p.Length + p.StdLength*rng.NormFloat64()
				if l < p.MinLength {
					l = p.MinLength
				}
				dir := g.rotateOnSurface(b, sign*p.BranchAngle)
				child, ok := g.growBranch(b.tip, dir, l, exclude)
				exclude = append(exclude, child.id)
				if ok {
					next = append(next, child)
				}
			}
		}
		open = next
		if len(open) == 0 {
			break
		}
	}

	return &Tree{Nodes: g.coords, Segments: g.segs}, nil
}

type grower struct {
	m   *Mesh
	p   Params
	rng *rand.Rand

	nodes  *pointGrid
	coords []r3.Vec
	segs   [][2]int32
	branch []int32 // branch id per node, for self-collision exclusion
	nextID int32
}

func (g *grower) addNode(p r3.Vec, branchID int32) int32 {
	id := g.nodes.Insert(p)
	g.coords = append(g.coords, p)
	g.branch = append(g.branch, branchID)
	return id
}

// tangent projects dir onto the surface tangent plane at p and
// normalizes it.
func (g *grower) tangent(p, dir r3.Vec) r3.Vec {
	_, n := g.m.project(p)
	t := r3.Sub(dir, r3.Scale(r3.Dot(dir, n), n))
	if r3.Norm(t) < 1e-12 {
		// Direction was parallel to the normal; any tangent will do,
		// and determinism matters more than the particular choice.
		t = r3.Cross(n, r3.Vec{X: 1})
		if r3.Norm(t) < 1e-12 {
			t = r3.Cross(n, r3.Vec{Y: 1})
		}
	}
	return r3.Unit(t)
}

// rotateOnSurface rotates the branch direction by angle around the
// surface normal at the branch tip (Rodrigues rotation restricted to
// the tangent plane).
func (g *grower) rotateOnSurface(b branch, angle float64) r3.Vec {
	p := g.coords[b.tip]
	_, n := g.m.project(p)
	d := b.dir
	ca, sa := math.Cos(angle), math.Sin(angle)
	rot := r3.Add(
		r3.Add(r3.Scale(ca, d), r3.Scale(sa, r3.Cross(n, d))),
		r3.Scale(r3.Dot(n, d)*(1-ca), n),
	)
	return g.tangent(p, rot)
}

// growBranch extends the tree from the given node with a new branch of
// the given total length, stepping along the surface and deflecting
// away from the existing network. Branches whose id is in exclude do
// not count for collisions or repulsion. Returns false when the branch
// collides before reaching full length; collided branches are kept in
// the tree but spawn no children.
func (g *grower) growBranch(
	from int32, dir r3.Vec, length float64, exclude []int32,
) (branch, bool) {
	branchID := g.nextID
	g.nextID++

	skip := func(id int32) bool {
		b := g.branch[id]
		if b == branchID || id == from {
			return true
		}
		for _, e := range exclude {
			if b == e {
				return true
			}
		}
		return false
	}

	steps := int(math.Ceil(length / g.p.SegmentLength))
	if steps < 2 {
		steps = 2
	}
	step := length / float64(steps)

	tip := from
	pos := g.coords[from]
	grown := 0
	for s := 0; s < steps; s++ {
		// Deflect away from the closest node outside this branch.
		other, dist := g.nodes.Nearest(pos, func(id int32) bool {
			return !skip(id)
		})
		if other >= 0 && dist < step && s > 0 {
			break // collision
		}
		if other >= 0 && dist > 1e-12 {
			away := r3.Scale(1/dist, r3.Sub(pos, g.coords[other]))
			dir = r3.Unit(r3.Add(dir, r3.Scale(g.p.RepulsionWeight, away)))
		}
		dir = g.tangent(pos, dir)

		next, _ := g.m.project(r3.Add(pos, r3.Scale(step, dir)))
		moved := r3.Sub(next, pos)
		if r3.Norm(moved) < 1e-12 {
			break
		}
		dir = r3.Unit(moved)

		id := g.addNode(next, branchID)
		g.segs = append(g.segs, [2]int32{tip, id})
		tip, pos = id, next
		grown++
	}

	return branch{id: branchID, tip: tip, dir: dir}, grown == steps
}
