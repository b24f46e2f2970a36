/*package mesh implements labeled tetrahedral meshes and the
biventricular ellipsoid generator.

A Mesh stores its boundary triangles and volume tetrahedra as separate
cell blocks, each carrying a physical region tag, together with a map
from region name to tag. This mirrors how Gmsh files organize labeled
geometry and is the contract the fiber and conduction-tree stages
consume.
*/
package mesh

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Physical group names used by the biventricular ellipsoid geometry.
const (
	GroupBase   = "BASE"
	GroupEndoLV = "ENDO_LV"
	GroupEndoRV = "ENDO_RV"
	GroupEpi    = "EPI"
	GroupWallLV = "WALL_LV"
	GroupWallRV = "WALL_RV"
)

// Mesh is a volumetric tetrahedral mesh with labeled boundary
// triangles. Vertices are shared between the triangle and tetrahedron
// blocks. A Mesh is treated as read-only once built.
type Mesh struct {
	Verts []r3.Vec

	Tets    [][4]int32
	TetTags []int32

	Tris    [][3]int32
	TriTags []int32

	// Names maps a physical group name to its numeric tag.
	Names map[string]int32
}

// Tag resolves a physical group name.
func (m *Mesh) Tag(name string) (int32, error) {
	tag, ok := m.Names[name]
	if !ok {
		return 0, fmt.Errorf("mesh has no physical group %q", name)
	}
	return tag, nil
}

// Surface is a triangulated boundary region. It keeps the full vertex
// slice of the parent mesh and restricts only the connectivity, so
// triangle indices remain valid indices into Verts.
type Surface struct {
	Verts []r3.Vec
	Tris  [][3]int32
}

// Surface extracts the boundary triangles carrying the given tag. An
// empty selection is an error: growing a conduction tree on a region
// that selected nothing would silently produce a degenerate tree.
func (m *Mesh) Surface(tag int32) (*Surface, error) {
	var tris [][3]int32
	for i, t := range m.TriTags {
		if t == tag {
			tris = append(tris, m.Tris[i])
		}
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("no boundary facets carry tag %d", tag)
	}
	return &Surface{Verts: m.Verts, Tris: tris}, nil
}

// NearestVertex returns the index of the surface vertex closest to p,
// as an index into the shared Verts slice. Ties break to the lowest
// index.
func (s *Surface) NearestVertex(p r3.Vec) int {
	seen := make(map[int32]bool)
	var ids []int
	for _, tri := range s.Tris {
		for _, v := range tri {
			if !seen[v] {
				seen[v] = true
				ids = append(ids, int(v))
			}
		}
	}
	sort.Ints(ids)

	best, bestD := -1, math.Inf(1)
	for _, i := range ids {
		d := r3.Norm2(r3.Sub(s.Verts[i], p))
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// NearestVertex returns the index of the vertex closest to p in
// Euclidean distance. Ties break to the lowest index, which keeps the
// lookup deterministic for a given vertex ordering.
func (m *Mesh) NearestVertex(p r3.Vec) int {
	best, bestD := -1, math.Inf(1)
	for i, v := range m.Verts {
		d := r3.Norm2(r3.Sub(v, p))
		if d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// VertsOnTag returns the sorted indices of all vertices incident to a
// boundary triangle carrying the given tag.
func (m *Mesh) VertsOnTag(tag int32) []int {
	seen := make(map[int32]bool)
	var ids []int
	for i, t := range m.TriTags {
		if t != tag {
			continue
		}
		for _, v := range m.Tris[i] {
			if !seen[v] {
				seen[v] = true
				ids = append(ids, int(v))
			}
		}
	}
	sort.Ints(ids)
	return ids
}

// Components partitions the vertices into connected components using
// tetrahedron adjacency and returns a component id per vertex along
// with the component count. The biventricular shell mesh can come out
// as two components when the walls do not share vertices, and the
// Laplace problems are posed per component.
func (m *Mesh) Components() (comp []int, n int) {
	parent := make([]int, len(m.Verts))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, tet := range m.Tets {
		for k := 1; k < 4; k++ {
			union(int(tet[0]), int(tet[k]))
		}
	}

	comp = make([]int, len(m.Verts))
	roots := make(map[int]int)
	for i := range m.Verts {
		r := find(i)
		id, ok := roots[r]
		if !ok {
			id = len(roots)
			roots[r] = id
		}
		comp[i] = id
	}
	return comp, len(roots)
}
