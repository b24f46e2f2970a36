package fem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var kuhnTets = [6][4]int{
	{0, 1, 3, 7}, {0, 3, 2, 7}, {0, 2, 6, 7},
	{0, 6, 4, 7}, {0, 4, 5, 7}, {0, 5, 1, 7},
}

// cubeMesh builds an n x n x n cell grid on the unit cube,
// tetrahedralized with the Kuhn subdivision. Returns vertices, tets and
// the indices of boundary vertices.
func cubeMesh(n int) (verts []r3.Vec, tets [][4]int32, boundary []int) {
	id := func(i, j, k int) int32 {
		return int32((i*(n+1)+j)*(n+1) + k)
	}
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			for k := 0; k <= n; k++ {
				verts = append(verts, r3.Vec{
					X: float64(i) / float64(n),
					Y: float64(j) / float64(n),
					Z: float64(k) / float64(n),
				})
				if i == 0 || i == n || j == 0 || j == n ||
					k == 0 || k == n {
					boundary = append(boundary, int(id(i, j, k)))
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				var c [8]int32
				for di := 0; di < 2; di++ {
					for dj := 0; dj < 2; dj++ {
						for dk := 0; dk < 2; dk++ {
							c[di+2*dj+4*dk] = id(i+di, j+dj, k+dk)
						}
					}
				}
				for _, kt := range kuhnTets {
					tets = append(tets, [4]int32{
						c[kt[0]], c[kt[1]], c[kt[2]], c[kt[3]],
					})
				}
			}
		}
	}
	return verts, tets, boundary
}

// linearBCs pins every boundary vertex to f(x) = x.X.
func linearBCs(verts []r3.Vec, boundary []int) []DirichletBC {
	bcs := make([]DirichletBC, len(boundary))
	for i, v := range boundary {
		bcs[i] = DirichletBC{Verts: []int{v}, Value: verts[v].X}
	}
	return bcs
}

func TestSolveLaplaceReproducesLinearField(t *testing.T) {
	verts, tets, boundary := cubeMesh(3)
	u, err := SolveLaplace(verts, tets, linearBCs(verts, boundary))
	require.NoError(t, err)

	// P1 elements represent linear fields exactly, so the harmonic
	// extension of u = x is u = x everywhere.
	for i, v := range verts {
		require.InDelta(t, v.X, u[i], 1e-8, "vertex %d", i)
	}
}

func TestSolveLaplaceMaximumPrinciple(t *testing.T) {
	verts, tets, boundary := cubeMesh(3)

	bcs := make([]DirichletBC, len(boundary))
	for i, v := range boundary {
		val := 0.0
		if verts[v].X > 0.99 {
			val = 1.0
		}
		bcs[i] = DirichletBC{Verts: []int{v}, Value: val}
	}

	u, err := SolveLaplace(verts, tets, bcs)
	require.NoError(t, err)
	for i, ui := range u {
		require.GreaterOrEqual(t, ui, -1e-9, "vertex %d", i)
		require.LessOrEqual(t, ui, 1+1e-9, "vertex %d", i)
	}
}

func TestVertexGradientsOfLinearField(t *testing.T) {
	verts, tets, _ := cubeMesh(2)
	u := make([]float64, len(verts))
	for i, v := range verts {
		u[i] = 2*v.X - v.Y + 0.5*v.Z
	}

	grad, err := VertexGradients(verts, tets, u)
	require.NoError(t, err)
	want := r3.Vec{X: 2, Y: -1, Z: 0.5}
	for i, g := range grad {
		require.InDelta(t, want.X, g.X, 1e-10, "vertex %d", i)
		require.InDelta(t, want.Y, g.Y, 1e-10, "vertex %d", i)
		require.InDelta(t, want.Z, g.Z, 1e-10, "vertex %d", i)
	}
}

func TestSolveLaplaceIsBitStable(t *testing.T) {
	verts, tets, boundary := cubeMesh(3)

	// Interior rows border several constrained vertices with distinct
	// values, so the right-hand side accumulation order matters at the
	// ulp level. Repeated solves must agree exactly.
	bcs := make([]DirichletBC, len(boundary))
	for i, v := range boundary {
		p := verts[v]
		bcs[i] = DirichletBC{
			Verts: []int{v},
			Value: math.Sin(3*p.X) + 0.7*p.Y*p.Z,
		}
	}

	first, err := SolveLaplace(verts, tets, bcs)
	require.NoError(t, err)
	for run := 0; run < 5; run++ {
		u, err := SolveLaplace(verts, tets, bcs)
		require.NoError(t, err)
		require.Equal(t, first, u, "run %d", run)
	}
}

func TestSolveLaplaceErrors(t *testing.T) {
	verts, tets, boundary := cubeMesh(2)

	_, err := SolveLaplace(verts, tets, nil)
	require.Error(t, err, "no constraints")

	_, err = SolveLaplace(verts, tets, []DirichletBC{
		{Verts: []int{len(verts)}, Value: 1},
	})
	require.Error(t, err, "out of range vertex")

	// A collapsed tetrahedron must be rejected.
	bad := append([][4]int32{}, tets...)
	bad[0] = [4]int32{0, 1, 1, 2}
	_, err = SolveLaplace(verts, bad, linearBCs(verts, boundary))
	require.Error(t, err)

	_, err = SolveLaplace(nil, nil, nil)
	require.Error(t, err)
}

func TestTetGradientsSumToZero(t *testing.T) {
	grads, vol, err := tetGradients(
		r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 2}, r3.Vec{X: 0.3, Z: 1.5},
	)
	require.NoError(t, err)
	require.Greater(t, vol, 0.0)

	var sum r3.Vec
	for _, g := range grads {
		sum = r3.Add(sum, g)
	}
	require.InDelta(t, 0, r3.Norm(sum), 1e-12)

	// grad(lambda_i) dotted with edge (x_j - x_0) is the Kronecker
	// delta for P1 elements.
	pts := []r3.Vec{{}, {X: 1}, {Y: 2}, {X: 0.3, Z: 1.5}}
	for i := 1; i < 4; i++ {
		for j := 1; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			got := r3.Dot(grads[i], r3.Sub(pts[j], pts[0]))
			require.InDelta(t, want, got, 1e-12)
		}
	}
}

func TestCGResidualSmall(t *testing.T) {
	verts, tets, boundary := cubeMesh(3)
	u, err := SolveLaplace(verts, tets, linearBCs(verts, boundary))
	require.NoError(t, err)
	require.False(t, math.IsNaN(u[0]))
}

func TestSolveCGOnSmallSystem(t *testing.T) {
	A := newCSR([]map[int32]float64{
		{0: 4, 1: -1},
		{0: -1, 1: 3},
	})
	b := []float64{1, 2}
	x, err := A.solveCG(b)
	require.NoError(t, err)
	require.Less(t, A.residual(x, b), 1e-9)

	// Indefinite systems are rejected rather than silently diverging.
	bad := newCSR([]map[int32]float64{
		{0: -1, 1: 0},
		{0: 0, 1: -1},
	})
	_, err = bad.solveCG(b)
	require.Error(t, err)
}
