// 17 Sep 2026

// Package compo adjusts a protein score matrix for the amino acid
// composition of the two sequences being aligned. The matrix's
// target frequencies are changed as little as possible, in the
// relative entropy sense, so that their row and column sums match
// the query and subject compositions. New scores come from the new
// frequencies with the old lambda.
package compo

import (
	"errors"
	"fmt"
	"math"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/linalg"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/matrix"
)

// N is the number of standard amino acids.
const N = 20

// stdCodes are the ncbistdaa codes of ACDEFGHIKLMNPQRSTVWY.
var stdCodes = [N]byte{1, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 22}

// robinson are the background frequencies of Robinson and Robinson,
// PNAS 88, 8880-8884 (1991), same order as stdCodes, per thousand.
var robinson = [N]float64{
	78.05, 19.25, 53.64, 62.95, 38.56, 73.77, 21.99, 51.42, 57.44, 90.19,
	22.43, 44.87, 52.03, 42.64, 51.29, 71.20, 58.41, 64.41, 13.30, 32.16}

// pseudo is the weight, in residues, of the background mixed into
// every composition, so no frequency is ever zero.
const pseudo = 20

const (
	maxIter = 200
	tol     = 1e-10
)

// ErrNoConverge is returned when the target frequencies cannot be
// found, usually because the compositions are too far from anything
// the matrix can be bent into.
var ErrNoConverge = errors.New("target frequencies did not converge")

// Background is a fresh copy of the background frequencies. They add
// up to one.
func Background() []float64 {
	p := make([]float64, N)
	var sum float64
	for _, f := range robinson {
		sum += f
	}
	for i, f := range robinson {
		p[i] = f / sum
	}
	return p
}

// Composition counts the standard residues in ncbistdaa codes and
// returns their frequencies, mixed with a little background. n is the
// number of standard residues seen.
func Composition(codes []byte) (freq []float64, n int) {
	var index [256]int8
	for i := range index {
		index[i] = -1
	}
	for i, c := range stdCodes {
		index[c] = int8(i)
	}
	var counts [N]int
	for _, c := range codes {
		if k := index[c]; k >= 0 {
			counts[k]++
			n++
		}
	}
	freq = Background()
	for i := range freq {
		freq[i] = (float64(counts[i]) + pseudo*freq[i]) / float64(n+pseudo)
	}
	return freq, n
}

// Lambda solves sum_ij p_i q_j exp(lambda s_ij) = 1 for the positive
// root. The expected score must be negative and some score positive.
// Bisection gets close and Newton finishes.
func Lambda(s [][]float64, p, q []float64) (float64, error) {
	var expect float64
	pos := false
	for i := range p {
		for j := range q {
			expect += p[i] * q[j] * s[i][j]
			if s[i][j] > 0 && p[i] > 0 && q[j] > 0 {
				pos = true
			}
		}
	}
	if expect >= 0 || !pos {
		return 0, fmt.Errorf("expected score %g, positive scores %t: %w", expect, pos, common.ErrBadArg)
	}
	f := func(l float64) (v, d float64) {
		for i := range p {
			for j := range q {
				e := p[i] * q[j] * math.Exp(l*s[i][j])
				v += e
				d += e * s[i][j]
			}
		}
		return v - 1, d
	}
	lo, hi := 0.0, 0.5
	for v, _ := f(hi); v <= 0; v, _ = f(hi) {
		lo, hi = hi, 2*hi
	}
	for i := 0; i < 60 && hi-lo > 1e-6; i++ {
		mid := (lo + hi) / 2
		if v, _ := f(mid); v > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}
	l := hi
	for i := 0; i < 20; i++ {
		v, d := f(l)
		if d <= 0 {
			break
		}
		next := l - v/d
		if next <= lo || next > hi {
			break
		}
		if math.Abs(next-l) < 1e-14 {
			l = next
			break
		}
		l = next
	}
	return l, nil
}

// OptimizeTargetFreqs finds x closest to q0 in relative entropy with
// row sums rowSums and column sums colSums. The answer has the form
// x_ij = q0_ij exp(u_i + v_j). Newton steps on u and v solve for the
// sums. The last v is fixed at zero since the two sets of sums share
// a total. q0 must be positive and both sums must add up to one.
func OptimizeTargetFreqs(q0 [][]float64, rowSums, colSums []float64) ([][]float64, error) {
	n := len(q0)
	if n == 0 || len(rowSums) != n || len(colSums) != n {
		return nil, fmt.Errorf("%d target frequencies with %d row and %d column sums: %w",
			n, len(rowSums), len(colSums), common.ErrBadArg)
	}
	var rt, ct float64
	for i := 0; i < n; i++ {
		if rowSums[i] <= 0 || colSums[i] <= 0 || len(q0[i]) != n {
			return nil, fmt.Errorf("non-positive sum or ragged matrix at %d: %w", i, common.ErrBadArg)
		}
		rt += rowSums[i]
		ct += colSums[i]
	}
	if math.Abs(rt-1) > 1e-8 || math.Abs(ct-1) > 1e-8 {
		return nil, fmt.Errorf("sums add up to %g and %g: %w", rt, ct, common.ErrBadArg)
	}

	m := 2*n - 1
	z := make([]float64, m) // u then v, without the last v
	resid := make([]float64, m)
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, n)
	}
	flat := make([]float64, n*n)
	dflat := make([]float64, n*n)
	hess, err := linalg.NewLowerTriangular(m)
	if err != nil {
		return nil, err
	}
	defer hess.Free()

	fill := func() {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				vj := 0.0
				if j < n-1 {
					vj = z[n+j]
				}
				x[i][j] = q0[i][j] * math.Exp(z[i]+vj)
			}
		}
	}
	residual := func() float64 {
		for i := 0; i < n; i++ {
			resid[i] = -rowSums[i]
			for j := 0; j < n; j++ {
				resid[i] += x[i][j]
			}
		}
		for j := 0; j < n-1; j++ {
			resid[n+j] = -colSums[j]
			for i := 0; i < n; i++ {
				resid[n+j] += x[i][j]
			}
		}
		return linalg.Norm(resid)
	}

	fill()
	for iter := 0; ; iter++ {
		if residual() < tol {
			return x, nil
		}
		if iter == maxIter {
			break
		}
		clear(hess.Backing())
		h := hess.Mat
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				h[i][i] += x[i][j]
			}
		}
		for j := 0; j < n-1; j++ {
			for i := 0; i < n; i++ {
				h[n+j][i] = x[i][j]
				h[n+j][n+j] += x[i][j]
			}
		}
		if err := linalg.Cholesky(hess); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrNoConverge)
		}
		step := make([]float64, m)
		for k := range step {
			step[k] = -resid[k]
		}
		if err := linalg.SolveCholesky(hess, step); err != nil {
			return nil, err
		}

		// To first order x_ij changes by x_ij (du_i + dv_j). Do not
		// let that take any frequency below zero.
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				d := step[i]
				if j < n-1 {
					d += step[n+j]
				}
				flat[i*n+j] = x[i][j]
				dflat[i*n+j] = x[i][j] * d
			}
		}
		alpha := linalg.StepBound(flat, dflat, 1)
		if alpha < 1 {
			alpha *= 0.9
		}
		if alpha == 0 {
			break
		}
		linalg.Axpy(alpha, step, z)
		fill()
	}
	return nil, fmt.Errorf("residual %g after %d steps: %w", linalg.Norm(resid), maxIter, ErrNoConverge)
}

// TargetFreqs gives the standard residue part of sb's matrix as
// floats, the lambda that goes with the background and the implied
// target frequencies, scaled to add up to one.
func TargetFreqs(sb *score.Block) (s, q0 [][]float64, lambda float64, err error) {
	if !sb.Protein {
		return nil, nil, 0, fmt.Errorf("composition adjustment of %s: %w", sb.MatrixName, common.ErrBadArg)
	}
	s = make([][]float64, N)
	for i, ci := range stdCodes {
		s[i] = make([]float64, N)
		for j, cj := range stdCodes {
			s[i][j] = float64(sb.Matrix[ci][cj])
		}
	}
	p := Background()
	if lambda, err = Lambda(s, p, p); err != nil {
		return nil, nil, 0, err
	}
	q0 = make([][]float64, N)
	var sum float64
	for i := range q0 {
		q0[i] = make([]float64, N)
		for j := range q0[i] {
			q0[i][j] = p[i] * p[j] * math.Exp(lambda*s[i][j])
			sum += q0[i][j]
		}
	}
	for i := range q0 {
		for j := range q0[i] {
			q0[i][j] /= sum
		}
	}
	return s, q0, lambda, nil
}

// realScores are log odds in lambda units before rounding.
func realScores(x [][]float64, r, c []float64, lambda float64) *matrix.FMatrix2d {
	m := matrix.NewFMatrix2d(N, N)
	for i := range x {
		for j := range x[i] {
			m.Mat[i][j] = float32(math.Log(x[i][j]/(r[i]*c[j])) / lambda)
		}
	}
	return m
}

// Adjust gives a copy of sb with the scores among the standard
// residues changed to suit a query of composition qcomp and a
// subject of composition scomp. Everything else in the matrix,
// including the sentinel and ambiguity codes, stays as it was.
func Adjust(sb *score.Block, qcomp, scomp []float64) (*score.Block, error) {
	_, q0, lambda, err := TargetFreqs(sb)
	if err != nil {
		return nil, err
	}
	x, err := OptimizeTargetFreqs(q0, qcomp, scomp)
	if err != nil {
		return nil, err
	}
	sc := realScores(x, qcomp, scomp, lambda)
	adj := sb.WithMatrix(sb.Matrix)
	for i, ci := range stdCodes {
		for j, cj := range stdCodes {
			adj.Matrix[ci][cj] = int32(math.Round(float64(sc.Mat[i][j])))
		}
	}
	adj.MatrixName = sb.MatrixName + " adjusted"
	return adj, adj.Validate()
}

// RelEntropy is the Kullback-Leibler divergence of p from q in nats.
// A zero in q is replaced by pseudo, so the result stays finite.
func RelEntropy(p, q []float64, pseudo float64) float64 {
	var d float64
	for i, pi := range p {
		if pi == 0 {
			continue
		}
		qi := q[i]
		if qi == 0 {
			qi = pseudo
		}
		d += pi * math.Log(pi/qi)
	}
	return d
}

// CosSim is the cosine of the angle between two compositions seen as
// vectors. Identical compositions give one.
func CosSim(p, q []float64) float64 {
	var pp, qq, pq float64
	for i := range p {
		pp += p[i] * p[i]
		qq += q[i] * q[i]
		pq += p[i] * q[i]
	}
	if pp == 0 || qq == 0 {
		return 0
	}
	return pq / (math.Sqrt(pp) * math.Sqrt(qq))
}
