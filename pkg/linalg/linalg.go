// 7 feb 2018
// 16 Sep 2026 float64, lower triangles, Cholesky and the bits the
// composition optimiser needs

// Package linalg is the small amount of linear algebra needed to
// adjust a score matrix for composition. Matrices are row slices that
// all point into one backing slice, so a whole matrix is one
// allocation and Free is just dropping it.
// Nothing here checks that a matrix is positive definite. If it is
// not, Cholesky says so, but the caller should not have got there.
package linalg

import (
	"fmt"
	"math"

	"github.com/andrew-torda/gapx/pkg/common"
)

// Matrix is a dense or lower triangular matrix of float64.
type Matrix struct {
	Mat      [][]float64
	fullData []float64
	tri      bool
}

// fixSlices sets the row slices. Row i of a triangle has i+1 entries.
func (m *Matrix) fixSlices(nr, nc int) {
	tmp := m.fullData
	m.Mat = make([][]float64, nr)
	for i := range m.Mat {
		n := nc
		if m.tri {
			n = i + 1
		}
		m.Mat[i] = tmp[:n:n]
		tmp = tmp[n:]
	}
}

// NewMatrix gives a zeroed nr x nc matrix.
func NewMatrix(nr, nc int) (*Matrix, error) {
	if nr < 0 || nc < 0 {
		return nil, fmt.Errorf("matrix %d x %d: %w", nr, nc, common.ErrBadArg)
	}
	m := &Matrix{fullData: make([]float64, nr*nc)}
	m.fixSlices(nr, nc)
	return m, nil
}

// NewLowerTriangular gives a zeroed n x n lower triangle, n(n+1)/2
// numbers.
func NewLowerTriangular(n int) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("triangle of %d: %w", n, common.ErrBadArg)
	}
	m := &Matrix{fullData: make([]float64, n*(n+1)/2), tri: true}
	m.fixSlices(n, n)
	return m, nil
}

// Backing is the slice all the rows live in.
func (m *Matrix) Backing() []float64 { return m.fullData }

// Triangular says if only the lower triangle is stored.
func (m *Matrix) Triangular() bool { return m.tri }

// Rows is the number of rows.
func (m *Matrix) Rows() int { return len(m.Mat) }

// Free lets go of the memory. The matrix has no rows after.
func (m *Matrix) Free() {
	m.Mat, m.fullData = nil, nil
}

// Cholesky factors the symmetric positive definite matrix whose lower
// triangle is in a, leaving L with A = L L^T in its place. Anything
// above the diagonal of a dense matrix is not touched.
func Cholesky(a *Matrix) error {
	L := a.Mat
	for i := range L {
		for j := 0; j <= i; j++ {
			s := L[i][j]
			for k := 0; k < j; k++ {
				s -= L[i][k] * L[j][k]
			}
			if i == j {
				if s <= 0 {
					return fmt.Errorf("matrix not positive definite at row %d: %w", i, common.ErrBadArg)
				}
				L[i][i] = math.Sqrt(s)
			} else {
				L[i][j] = s / L[j][j]
			}
		}
	}
	return nil
}

// SolveCholesky solves L L^T x = b, with L from Cholesky. x replaces b.
func SolveCholesky(L *Matrix, b []float64) error {
	n := L.Rows()
	if len(b) != n {
		return fmt.Errorf("solving %d x %d with %d values: %w", n, n, len(b), common.ErrBadArg)
	}
	l := L.Mat
	for i := 0; i < n; i++ { // forward, L y = b
		s := b[i]
		for k := 0; k < i; k++ {
			s -= l[i][k] * b[k]
		}
		b[i] = s / l[i][i]
	}
	for i := n - 1; i >= 0; i-- { // back, L^T x = y
		s := b[i]
		for k := i + 1; k < n; k++ {
			s -= l[k][i] * b[k]
		}
		b[i] = s / l[i][i]
	}
	return nil
}

// Norm is the Euclidean length of v. It keeps a running scale so
// huge or tiny entries do not overflow or vanish when squared.
func Norm(v []float64) float64 {
	scale, ssq := 0.0, 1.0
	for _, x := range v {
		if x == 0 {
			continue
		}
		ax := math.Abs(x)
		if scale < ax {
			ssq = 1 + ssq*(scale/ax)*(scale/ax)
			scale = ax
		} else {
			ssq += (ax / scale) * (ax / scale)
		}
	}
	return scale * math.Sqrt(ssq)
}

// Axpy does y += alpha * x.
func Axpy(alpha float64, x, y []float64) {
	for i, v := range x[:len(y)] {
		y[i] += alpha * v
	}
}

// Dot is the scalar product.
func Dot(x, y []float64) float64 {
	var s float64
	for i, v := range x[:len(y)] {
		s += v * y[i]
	}
	return s
}

// StepBound is the biggest alpha, no more than max, that keeps every
// x[i] + alpha*step[i] from going negative. x should not be negative
// to start with.
func StepBound(x, step []float64, max float64) float64 {
	alpha := max
	for i, s := range step[:len(x)] {
		if s < 0 {
			if a := -x[i] / s; a < alpha {
				alpha = a
			}
		}
	}
	if alpha < 0 {
		alpha = 0
	}
	return alpha
}
