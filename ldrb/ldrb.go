/*package ldrb assigns a fiber, sheet and sheet-normal direction to
every vertex of a labeled biventricular mesh with the Laplace-Dirichlet
rule-based algorithm (Bayer et al., 2012).

Scalar potentials are solved on the mesh with unit Dirichlet data on
the epicardium, each endocardium and the base; their gradients define
local transmural and apicobasal directions, and prescribed helix and
transverse angles are interpolated across the wall by rotating and
blending orthonormal axis systems.
*/
package ldrb

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"bivgen/fem"
	"bivgen/geom"
	"bivgen/mesh"
)

// Markers carries the boundary tags the algorithm needs.
type Markers struct {
	Base, LV, RV, Epi int32
}

// MarkersFromMesh resolves the standard biventricular group names.
func MarkersFromMesh(m *mesh.Mesh) (Markers, error) {
	var mk Markers
	var err error
	if mk.Base, err = m.Tag(mesh.GroupBase); err != nil {
		return mk, err
	}
	if mk.LV, err = m.Tag(mesh.GroupEndoLV); err != nil {
		return mk, err
	}
	if mk.RV, err = m.Tag(mesh.GroupEndoRV); err != nil {
		return mk, err
	}
	if mk.Epi, err = m.Tag(mesh.GroupEpi); err != nil {
		return mk, err
	}
	return mk, nil
}

// Params are the helix (alpha) and transverse (beta) angles on the
// endocardial and epicardial surfaces, in degrees.
type Params struct {
	AlphaEndoLV, AlphaEpiLV float64
	BetaEndoLV, BetaEpiLV   float64
}

// DefaultParams is the usual rule set: fibers rotate from +60 degrees
// on the endocardium to -60 degrees on the epicardium with no
// transverse angle.
func DefaultParams() Params {
	return Params{AlphaEndoLV: 60, AlphaEpiLV: -60}
}

// System holds the per-vertex orthonormal microstructure basis.
type System struct {
	Fiber, Sheet, SheetNormal []r3.Vec
}

// Run computes the microstructure for every vertex of m.
func Run(m *mesh.Mesh, mk Markers, p Params) (*System, error) {
	fields, err := solvePotentials(m, mk)
	if err != nil {
		return nil, err
	}

	n := len(m.Verts)
	sys := &System{
		Fiber:       make([]r3.Vec, n),
		Sheet:       make([]r3.Vec, n),
		SheetNormal: make([]r3.Vec, n),
	}

	for v := 0; v < n; v++ {
		q := vertexSystem(
			p,
			fields.phiLV[v], fields.phiRV[v], fields.phiEpi[v],
			fields.gradAB[v],
			fields.gradLV[v], fields.gradRV[v], fields.gradEpi[v],
		)
		a := geom.AxisSystemFromQuat(q)
		sys.Fiber[v] = a.E0
		sys.Sheet[v] = a.E1
		sys.SheetNormal[v] = a.E2
	}
	return sys, nil
}

// potentials bundles the solved Laplace fields and their recovered
// vertex gradients.
type potentials struct {
	phiLV, phiRV, phiEpi, psiAB     []float64
	gradLV, gradRV, gradEpi, gradAB []r3.Vec
}

func solvePotentials(m *mesh.Mesh, mk Markers) (*potentials, error) {
	surfaces := []struct {
		name string
		tag  int32
	}{
		{"base", mk.Base}, {"lv endocardium", mk.LV},
		{"rv endocardium", mk.RV}, {"epicardium", mk.Epi},
	}
	verts := make([][]int, len(surfaces))
	for i, s := range surfaces {
		verts[i] = m.VertsOnTag(s.tag)
		if len(verts[i]) == 0 {
			return nil, fmt.Errorf(
				"fiber markers: no boundary vertices on the %s (tag %d)",
				s.name, s.tag,
			)
		}
	}
	base, lv, rv, epi := verts[0], verts[1], verts[2], verts[3]

	pt := &potentials{}
	var err error

	solve := func(bcs []fem.DirichletBC) ([]float64, []r3.Vec, error) {
		u, err := fem.SolveLaplace(m.Verts, m.Tets, bcs)
		if err != nil {
			return nil, nil, err
		}
		g, err := fem.VertexGradients(m.Verts, m.Tets, u)
		if err != nil {
			return nil, nil, err
		}
		return u, g, nil
	}

	pt.phiLV, pt.gradLV, err = solve([]fem.DirichletBC{
		{Verts: lv, Value: 1},
		{Verts: rv, Value: 0},
		{Verts: epi, Value: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("lv potential: %w", err)
	}
	pt.phiRV, pt.gradRV, err = solve([]fem.DirichletBC{
		{Verts: rv, Value: 1},
		{Verts: lv, Value: 0},
		{Verts: epi, Value: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("rv potential: %w", err)
	}
	pt.phiEpi, pt.gradEpi, err = solve([]fem.DirichletBC{
		{Verts: epi, Value: 1},
		{Verts: lv, Value: 0},
		{Verts: rv, Value: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("epi potential: %w", err)
	}

	apex := apexVertices(m, base)
	pt.psiAB, pt.gradAB, err = solve([]fem.DirichletBC{
		{Verts: base, Value: 1},
		{Verts: apex, Value: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("apicobasal potential: %w", err)
	}

	return pt, nil
}

// apexVertices picks one apex per connected component: the vertex
// farthest from the base plane. Posing the apicobasal problem per
// component keeps it well posed when the two walls are meshed as
// separate shells.
func apexVertices(m *mesh.Mesh, base []int) []int {
	comp, n := m.Components()

	inBase := make(map[int]bool, len(base))
	for _, v := range base {
		inBase[v] = true
	}

	apex := make([]int, n)
	depth := make([]float64, n)
	for i := range apex {
		apex[i] = -1
	}
	for v, p := range m.Verts {
		if inBase[v] {
			continue
		}
		c := comp[v]
		if apex[c] == -1 || p.X > depth[c] {
			apex[c], depth[c] = v, p.X
		}
	}

	var out []int
	for _, v := range apex {
		if v >= 0 {
			out = append(out, v)
		}
	}
	return out
}

// vertexSystem evaluates the orientation rule at one vertex.
func vertexSystem(
	p Params,
	phiLV, phiRV, phiEpi float64,
	gAB, gLV, gRV, gEpi r3.Vec,
) geom.Quat {
	const eps = 1e-9

	// Interventricular blend: 0 deep in the LV wall, 1 in the RV.
	w := 0.0
	if phiLV+phiRV > eps {
		w = phiRV / (phiLV + phiRV)
	}

	alphaS := rad(p.AlphaEndoLV * (1 - 2*w))
	betaS := rad(p.BetaEndoLV * (1 - 2*w))
	alphaW := rad(p.AlphaEndoLV*(1-phiEpi) + p.AlphaEpiLV*phiEpi)
	betaW := rad(p.BetaEndoLV*(1-phiEpi) + p.BetaEpiLV*phiEpi)

	qLV := orient(gAB, r3.Scale(-1, gLV), alphaS, betaS)
	qRV := orient(gAB, gRV, alphaS, betaS)
	qEndo := geom.Bislerp(qLV, qRV, w)

	qEpi := orient(gAB, gEpi, alphaW, betaW)

	return geom.Bislerp(qEndo, qEpi, clamp01(phiEpi))
}

// orient builds an axis system from an apicobasal and a transmural
// gradient and applies the rule angles, degrading gracefully when the
// gradients degenerate.
func orient(u, v r3.Vec, alpha, beta float64) geom.Quat {
	a, ok := geom.NewAxisSystem(u, v)
	if !ok {
		// Degenerate gradient pair. Fall back to any completion of
		// whichever direction survives, so blending continues with a
		// valid rotation.
		for _, fallback := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
			if a, ok = geom.NewAxisSystem(u, fallback); ok {
				break
			}
			if a, ok = geom.NewAxisSystem(fallback, v); ok {
				break
			}
		}
		if !ok {
			a = geom.AxisSystem{
				E0: r3.Vec{X: 1}, E1: r3.Vec{Y: 1}, E2: r3.Vec{Z: 1},
			}
		}
	}
	return a.Orient(alpha, beta).Quat()
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
