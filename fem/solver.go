package fem

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// csr is a square sparse matrix in compressed sparse row form.
type csr struct {
	n      int
	rowPtr []int
	colIdx []int32
	vals   []float64
}

func newCSR(rows []map[int32]float64) *csr {
	A := &csr{n: len(rows), rowPtr: make([]int, len(rows)+1)}
	for i, row := range rows {
		cols := make([]int32, 0, len(row))
		for j := range row {
			cols = append(cols, j)
		}
		sort.Slice(cols, func(a, b int) bool { return cols[a] < cols[b] })
		for _, j := range cols {
			A.colIdx = append(A.colIdx, j)
			A.vals = append(A.vals, row[j])
		}
		A.rowPtr[i+1] = len(A.colIdx)
	}
	return A
}

func (A *csr) mulVec(dst, x []float64) {
	for i := 0; i < A.n; i++ {
		sum := 0.0
		for k := A.rowPtr[i]; k < A.rowPtr[i+1]; k++ {
			sum += A.vals[k] * x[A.colIdx[k]]
		}
		dst[i] = sum
	}
}

func (A *csr) diag() []float64 {
	d := make([]float64, A.n)
	for i := 0; i < A.n; i++ {
		for k := A.rowPtr[i]; k < A.rowPtr[i+1]; k++ {
			if int(A.colIdx[k]) == i {
				d[i] = A.vals[k]
				break
			}
		}
	}
	return d
}

const (
	cgTolerance = 1e-10
	cgMaxFactor = 20 // max iterations per unknown is capped at 20*n
)

// solveCG runs Jacobi-preconditioned conjugate gradients. The assembled
// Laplace systems are symmetric positive definite once the Dirichlet
// rows are eliminated, so plain CG is sufficient.
func (A *csr) solveCG(b []float64) ([]float64, error) {
	n := A.n
	x := make([]float64, n)
	r := make([]float64, n)
	z := make([]float64, n)
	p := make([]float64, n)
	Ap := make([]float64, n)

	d := A.diag()
	for i, di := range d {
		if di == 0 {
			return nil, fmt.Errorf(
				"zero diagonal at row %d: vertex %d belongs to no element",
				i, i,
			)
		}
	}

	copy(r, b)
	normB := floats.Norm(b, 2)
	if normB == 0 {
		return x, nil
	}

	for i := range z {
		z[i] = r[i] / d[i]
	}
	copy(p, z)
	rz := floats.Dot(r, z)

	maxIter := cgMaxFactor * n
	for iter := 0; iter < maxIter; iter++ {
		A.mulVec(Ap, p)
		pAp := floats.Dot(p, Ap)
		if pAp <= 0 {
			return nil, fmt.Errorf(
				"CG breakdown at iteration %d: matrix is not positive "+
					"definite", iter,
			)
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)

		if floats.Norm(r, 2) <= cgTolerance*normB {
			return x, nil
		}

		for i := range z {
			z[i] = r[i] / d[i]
		}
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	return nil, fmt.Errorf(
		"CG did not converge within %d iterations (residual %g)",
		maxIter, floats.Norm(r, 2)/normB,
	)
}

// residual is a test hook: ||Ax - b|| / ||b||.
func (A *csr) residual(x, b []float64) float64 {
	r := make([]float64, A.n)
	A.mulVec(r, x)
	floats.Sub(r, b)
	nb := floats.Norm(b, 2)
	if nb == 0 {
		nb = 1
	}
	return floats.Norm(r, 2) / nb
}
