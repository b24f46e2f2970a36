/*package fem is a minimal P1 finite-element toolbox for tetrahedral
meshes: Laplace stiffness assembly, Dirichlet conditions, a
conjugate-gradient solve and vertex gradient recovery. It exists to
serve the Laplace-Dirichlet fiber rules and is not a general solver.
*/
package fem

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DirichletBC pins the listed vertices to a fixed value.
type DirichletBC struct {
	Verts []int
	Value float64
}

// tetGradients returns the constant gradients of the four P1 basis
// functions on a tetrahedron together with its volume.
func tetGradients(a, b, c, d r3.Vec) (grads [4]r3.Vec, vol float64, err error) {
	e1, e2, e3 := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(d, a)

	J := mat.NewDense(3, 3, []float64{
		e1.X, e2.X, e3.X,
		e1.Y, e2.Y, e3.Y,
		e1.Z, e2.Z, e3.Z,
	})

	det := mat.Det(J)
	vol = det / 6
	if vol < 0 {
		vol = -vol
	}
	if vol < 1e-14 {
		return grads, 0, fmt.Errorf("degenerate tetrahedron (volume %g)", vol)
	}

	var inv mat.Dense
	if err := inv.Inverse(J); err != nil {
		return grads, 0, fmt.Errorf("singular element jacobian: %w", err)
	}

	// Rows of J^-1 are the gradients of the barycentric coordinates
	// attached to b, c, d; the one at a balances them to zero sum.
	for i := 0; i < 3; i++ {
		g := r3.Vec{X: inv.At(i, 0), Y: inv.At(i, 1), Z: inv.At(i, 2)}
		grads[i+1] = g
		grads[0] = r3.Sub(grads[0], g)
	}
	return grads, vol, nil
}

// SolveLaplace solves the Laplace equation on the tetrahedral mesh
// with the given Dirichlet conditions and returns the vertex values.
func SolveLaplace(
	verts []r3.Vec, tets [][4]int32, bcs []DirichletBC,
) ([]float64, error) {
	n := len(verts)
	if n == 0 || len(tets) == 0 {
		return nil, fmt.Errorf("empty mesh")
	}

	constrained := make([]bool, n)
	value := make([]float64, n)
	nBC := 0
	for _, bc := range bcs {
		for _, v := range bc.Verts {
			if v < 0 || v >= n {
				return nil, fmt.Errorf("Dirichlet vertex %d out of range", v)
			}
			constrained[v] = true
			value[v] = bc.Value
			nBC++
		}
	}
	if nBC == 0 {
		return nil, fmt.Errorf("Laplace problem has no Dirichlet constraints")
	}

	// Assemble into per-row maps, then flatten to CSR.
	rows := make([]map[int32]float64, n)
	for i := range rows {
		rows[i] = make(map[int32]float64, 16)
	}
	for ti, tet := range tets {
		grads, vol, err := tetGradients(
			verts[tet[0]], verts[tet[1]], verts[tet[2]], verts[tet[3]],
		)
		if err != nil {
			return nil, fmt.Errorf("tet %d: %w", ti, err)
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				rows[tet[i]][tet[j]] += vol * r3.Dot(grads[i], grads[j])
			}
		}
	}

	// Impose the Dirichlet conditions symmetrically: known values move
	// to the right-hand side, constrained rows collapse to identity.
	// The eliminated columns are accumulated in sorted order; map
	// iteration order would make the rounding of the sum, and with it
	// the solution, vary from run to run.
	rhs := make([]float64, n)
	for i := range rows {
		if constrained[i] {
			rows[i] = map[int32]float64{int32(i): 1}
			rhs[i] = value[i]
			continue
		}
		var elim []int32
		for j := range rows[i] {
			if constrained[j] {
				elim = append(elim, j)
			}
		}
		sort.Slice(elim, func(a, b int) bool { return elim[a] < elim[b] })
		for _, j := range elim {
			rhs[i] -= rows[i][j] * value[j]
			delete(rows[i], j)
		}
	}

	A := newCSR(rows)
	u, err := A.solveCG(rhs)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// VertexGradients recovers a nodal gradient field from vertex values by
// volume-weighted averaging of the constant element gradients.
func VertexGradients(
	verts []r3.Vec, tets [][4]int32, u []float64,
) ([]r3.Vec, error) {
	if len(u) != len(verts) {
		return nil, fmt.Errorf(
			"%d values for %d vertices", len(u), len(verts),
		)
	}

	grad := make([]r3.Vec, len(verts))
	weight := make([]float64, len(verts))
	for ti, tet := range tets {
		grads, vol, err := tetGradients(
			verts[tet[0]], verts[tet[1]], verts[tet[2]], verts[tet[3]],
		)
		if err != nil {
			return nil, fmt.Errorf("tet %d: %w", ti, err)
		}
		var g r3.Vec
		for i := 0; i < 4; i++ {
			g = r3.Add(g, r3.Scale(u[tet[i]], grads[i]))
		}
		for i := 0; i < 4; i++ {
			v := tet[i]
			grad[v] = r3.Add(grad[v], r3.Scale(vol, g))
			weight[v] += vol
		}
	}
	for i := range grad {
		if weight[i] > 0 {
			grad[i] = r3.Scale(1/weight[i], grad[i])
		}
	}
	return grad, nil
}
