package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"bivgen/geom"
)

// Params are the shape parameters of the biventricular ellipsoid
// geometry: endocardial and epicardial semi-axes for each ventricle,
// the in-plane center offsets, and the target characteristic length of
// the mesh. Defaults (see DefaultParams) reproduce the reference
// geometry.
type Params struct {
	CharLength float64

	CenterLVY, CenterLVZ      float64
	AEndoLV, BEndoLV, CEndoLV float64
	AEpiLV, BEpiLV, CEpiLV    float64

	CenterRVY, CenterRVZ      float64
	AEndoRV, BEndoRV, CEndoRV float64
	AEpiRV, BEpiRV, CEpiRV    float64
}

// DefaultParams returns the reference biventricular geometry. Reduce
// CharLength to get a finer mesh.
func DefaultParams() Params {
	return Params{
		CharLength: 0.2,

		CenterLVY: 0.2, CenterLVZ: 0.0,
		AEndoLV: 5.0, BEndoLV: 2.2, CEndoLV: 2.2,
		AEpiLV: 6.0, BEpiLV: 3.0, CEpiLV: 3.0,

		CenterRVY: 1.0, CenterRVZ: 0.0,
		AEndoRV: 6.0, BEndoRV: 2.5, CEndoRV: 2.7,
		AEpiRV: 8.0, BEpiRV: 5.5, CEpiRV: 4.0,
	}
}

func (p *Params) check() error {
	axes := []struct {
		name      string
		endo, epi float64
	}{
		{"a_lv", p.AEndoLV, p.AEpiLV},
		{"b_lv", p.BEndoLV, p.BEpiLV},
		{"c_lv", p.CEndoLV, p.CEpiLV},
		{"a_rv", p.AEndoRV, p.AEpiRV},
		{"b_rv", p.BEndoRV, p.BEpiRV},
		{"c_rv", p.CEndoRV, p.CEpiRV},
	}
	for _, ax := range axes {
		if ax.endo <= 0 || ax.epi <= 0 {
			return fmt.Errorf("semi-axis %s must be positive", ax.name)
		}
		if ax.epi <= ax.endo {
			return fmt.Errorf(
				"epicardial semi-axis %s (%g) must exceed the "+
					"endocardial one (%g)", ax.name, ax.epi, ax.endo,
			)
		}
	}
	if p.CharLength <= 0 {
		return fmt.Errorf("characteristic length must be positive")
	}
	return nil
}

// GenerateBivEllipsoid meshes the two ventricular walls as truncated
// ellipsoid shells. Each wall is a structured grid in transmural,
// longitudinal and circumferential coordinates, tetrahedralized with
// the Kuhn subdivision so that neighboring cells share faces. The
// boundary is labeled BASE (the flat cut at x = 0), ENDO_LV, ENDO_RV
// and EPI; the wall volumes are labeled WALL_LV and WALL_RV.
func GenerateBivEllipsoid(p Params) (*Mesh, error) {
	if err := p.check(); err != nil {
		return nil, fmt.Errorf("biv ellipsoid parameters: %w", err)
	}

	m := &Mesh{Names: map[string]int32{
		GroupBase:   tagBase,
		GroupEndoLV: tagEndoLV,
		GroupEndoRV: tagEndoRV,
		GroupEpi:    tagEpi,
		GroupWallLV: tagWallLV,
		GroupWallRV: tagWallRV,
	}}

	lv := shellSpec{
		endo: geom.Ellipsoid{
			A: p.AEndoLV, B: p.BEndoLV, C: p.CEndoLV,
			Center: r3.Vec{Y: p.CenterLVY, Z: p.CenterLVZ},
		},
		epi: geom.Ellipsoid{
			A: p.AEpiLV, B: p.BEpiLV, C: p.CEpiLV,
			Center: r3.Vec{Y: p.CenterLVY, Z: p.CenterLVZ},
		},
		wallTag: tagWallLV,
		endoTag: tagEndoLV,
		epiTag:  tagEpi,
		baseTag: tagBase,
	}
	rv := shellSpec{
		endo: geom.Ellipsoid{
			A: p.AEndoRV, B: p.BEndoRV, C: p.CEndoRV,
			Center: r3.Vec{Y: p.CenterRVY, Z: p.CenterRVZ},
		},
		epi: geom.Ellipsoid{
			A: p.AEpiRV, B: p.BEpiRV, C: p.CEpiRV,
			Center: r3.Vec{Y: p.CenterRVY, Z: p.CenterRVZ},
		},
		wallTag: tagWallRV,
		endoTag: tagEndoRV,
		epiTag:  tagEpi,
		baseTag: tagBase,
	}

	meshShell(m, lv, p.CharLength)
	meshShell(m, rv, p.CharLength)

	return m, nil
}

const (
	tagBase   int32 = 1
	tagEndoLV int32 = 2
	tagEndoRV int32 = 3
	tagEpi    int32 = 4
	tagWallLV int32 = 5
	tagWallRV int32 = 6
)

type shellSpec struct {
	endo, epi geom.Ellipsoid
	wallTag   int32
	endoTag   int32
	epiTag    int32
	baseTag   int32
}

// kuhnTets subdivides a hexahedron into six tetrahedra around the main
// diagonal 0-7 with corners numbered i + 2j + 4k. The subdivision is
// translation invariant, so neighboring grid cells conform.
var kuhnTets = [6][4]int{
	{0, 1, 3, 7}, {0, 3, 2, 7}, {0, 2, 6, 7},
	{0, 6, 4, 7}, {0, 4, 5, 7}, {0, 5, 1, 7},
}

// meshShell appends one ventricular wall to m. The structured grid runs
// t = 0..nt through the wall (0 = endocardium), u = 0..nu from apex to
// base and v = 0..nv-1 around the long axis. Row u = 0 collapses to a
// single apex vertex per layer; cells touching it degenerate to wedges
// and their zero-volume tetrahedra are dropped.
func meshShell(m *Mesh, spec shellSpec, h float64) {
	nt, nu, nv := shellResolution(spec, h)

	off := int32(len(m.Verts))
	vid := func(t, u, v int) int32 {
		if u == 0 {
			return off + int32(t)
		}
		v = ((v % nv) + nv) % nv
		return off + int32(nt+1) + int32(((t*nu)+(u-1))*nv+v)
	}

	// Vertices: apex column first, then the (t, u, v) grid.
	for t := 0; t <= nt; t++ {
		m.Verts = append(m.Verts, shellPoint(spec, nt, t, 0, 0, 0))
	}
	for t := 0; t <= nt; t++ {
		for u := 1; u <= nu; u++ {
			for v := 0; v < nv; v++ {
				m.Verts = append(m.Verts, shellPoint(spec, nt, t, nu, u, 2*math.Pi*float64(v)/float64(nv)))
			}
		}
	}

	// Volume cells.
	for t := 0; t < nt; t++ {
		for u := 0; u < nu; u++ {
			for v := 0; v < nv; v++ {
				var c [8]int32
				for i := 0; i < 2; i++ {
					for j := 0; j < 2; j++ {
						for k := 0; k < 2; k++ {
							c[i+2*j+4*k] = vid(t+i, u+j, v+k)
						}
					}
				}
				for _, kt := range kuhnTets {
					tet := [4]int32{c[kt[0]], c[kt[1]], c[kt[2]], c[kt[3]]}
					if degenerateTet(tet) {
						continue
					}
					m.Tets = append(m.Tets, tet)
					m.TetTags = append(m.TetTags, spec.wallTag)
				}
			}
		}
	}

	// Boundary triangles. The diagonals below are the ones the Kuhn
	// subdivision induces on each boundary face.
	for u := 0; u < nu; u++ {
		for v := 0; v < nv; v++ {
			// Endocardium, t = 0: quad (u,v)-(u+1,v)-(u,v+1)-(u+1,v+1).
			appendTri(m, spec.endoTag,
				vid(0, u, v), vid(0, u+1, v), vid(0, u+1, v+1))
			appendTri(m, spec.endoTag,
				vid(0, u, v), vid(0, u+1, v+1), vid(0, u, v+1))
			// Epicardium, t = nt.
			appendTri(m, spec.epiTag,
				vid(nt, u, v), vid(nt, u+1, v), vid(nt, u+1, v+1))
			appendTri(m, spec.epiTag,
				vid(nt, u, v), vid(nt, u+1, v+1), vid(nt, u, v+1))
		}
	}
	for t := 0; t < nt; t++ {
		for v := 0; v < nv; v++ {
			// Base annulus, u = nu.
			appendTri(m, spec.baseTag,
				vid(t, nu, v), vid(t+1, nu, v), vid(t+1, nu, v+1))
			appendTri(m, spec.baseTag,
				vid(t, nu, v), vid(t+1, nu, v+1), vid(t, nu, v+1))
		}
	}
}

func appendTri(m *Mesh, tag int32, a, b, c int32) {
	if a == b || b == c || a == c {
		return
	}
	m.Tris = append(m.Tris, [3]int32{a, b, c})
	m.TriTags = append(m.TriTags, tag)
}

func degenerateTet(t [4]int32) bool {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if t[i] == t[j] {
				return true
			}
		}
	}
	return false
}

// shellPoint interpolates between the endo and epi surfaces at grid
// position (t, u-as-angle, theta).
func shellPoint(spec shellSpec, nt, t, nu, u int, theta float64) r3.Vec {
	phi := 0.0
	if nu > 0 {
		phi = (math.Pi / 2) * float64(u) / float64(nu)
	}
	xi := float64(t) / float64(nt)
	pe := spec.endo.Point(phi, theta)
	pp := spec.epi.Point(phi, theta)
	return r3.Add(r3.Scale(1-xi, pe), r3.Scale(xi, pp))
}

// shellResolution converts the characteristic length into grid counts.
// Lower bounds keep very coarse requests meshable.
func shellResolution(spec shellSpec, h float64) (nt, nu, nv int) {
	thickness := ((spec.epi.A - spec.endo.A) +
		(spec.epi.B - spec.endo.B) + (spec.epi.C - spec.endo.C)) / 3
	meridian := (math.Pi / 2) * (spec.endo.A + spec.epi.A) / 2
	circumference := 2 * math.Pi * spec.epi.MeanRadius()

	nt = clampMin(int(math.Round(thickness/h)), 1)
	nu = clampMin(int(math.Round(meridian/h)), 3)
	nv = clampMin(int(math.Round(circumference/h)), 6)
	return nt, nu, nv
}

func clampMin(x, min int) int {
	if x < min {
		return min
	}
	return x
}
