package compo_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/compo"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/seqblk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackground(t *testing.T) {
	p := compo.Background()
	require.Len(t, p, compo.N)
	var sum float64
	for _, f := range p {
		assert.Greater(t, f, 0.0)
		sum += f
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestComposition(t *testing.T) {
	codes, err := seqblk.EncodeProtein([]byte("AAAAXXCC"))
	require.NoError(t, err)
	codes = append(codes, seqblk.AaSentinel)
	f, n := compo.Composition(codes)
	assert.Equal(t, 6, n, "X and gap are not standard")
	var sum float64
	for _, v := range f {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, f[0], f[1], "A should beat C")
	bg := compo.Background()
	assert.Greater(t, f[0], bg[0])

	f, n = compo.Composition(nil)
	assert.Equal(t, 0, n)
	assert.InDeltaSlice(t, bg, f, 1e-15)
}

// With two letters, scores 1 and -2 and equal frequencies,
// exp(lambda) is the golden ratio.
func TestLambda(t *testing.T) {
	s := [][]float64{{1, -2}, {-2, 1}}
	p := []float64{0.5, 0.5}
	l, err := compo.Lambda(s, p, p)
	require.NoError(t, err)
	assert.InDelta(t, math.Log((1+math.Sqrt(5))/2), l, 1e-10)

	_, err = compo.Lambda([][]float64{{1, 1}, {1, 1}}, p, p)
	assert.True(t, errors.Is(err, common.ErrBadArg), "positive expected score")
	_, err = compo.Lambda([][]float64{{-1, -1}, {-1, -1}}, p, p)
	assert.Error(t, err)
}

func randFreqs(rnd *rand.Rand, n int) []float64 {
	f := make([]float64, n)
	var sum float64
	for i := range f {
		f[i] = 0.2 + rnd.Float64()
		sum += f[i]
	}
	for i := range f {
		f[i] /= sum
	}
	return f
}

func TestOptimize(t *testing.T) {
	sb, err := score.NewProtein(score.Blosum62(), 11, 1)
	require.NoError(t, err)
	_, q0, lambda, err := compo.TargetFreqs(sb)
	require.NoError(t, err)
	assert.InDelta(t, 0.32, lambda, 0.03)

	rnd := rand.New(rand.NewSource(3))
	r, c := randFreqs(rnd, compo.N), randFreqs(rnd, compo.N)
	x, err := compo.OptimizeTargetFreqs(q0, r, c)
	require.NoError(t, err)
	for i := 0; i < compo.N; i++ {
		var rs, cs float64
		for j := 0; j < compo.N; j++ {
			rs += x[i][j]
			cs += x[j][i]
		}
		assert.InDelta(t, r[i], rs, 1e-9)
		assert.InDelta(t, c[i], cs, 1e-9)
	}
	// The answer is q0 scaled by a row factor and a column factor.
	lr := func(i, j int) float64 { return math.Log(x[i][j] / q0[i][j]) }
	for i := 1; i < compo.N; i++ {
		for j := 1; j < compo.N; j++ {
			assert.InDelta(t, 0, lr(i, j)-lr(i, 0)-lr(0, j)+lr(0, 0), 1e-8)
		}
	}

	// Marginals of q0 itself give q0 back.
	rs, cs := make([]float64, compo.N), make([]float64, compo.N)
	for i := range q0 {
		for j := range q0[i] {
			rs[i] += q0[i][j]
			cs[j] += q0[i][j]
		}
	}
	x, err = compo.OptimizeTargetFreqs(q0, rs, cs)
	require.NoError(t, err)
	for i := range q0 {
		assert.InDeltaSlice(t, q0[i], x[i], 1e-12)
	}

	_, err = compo.OptimizeTargetFreqs(q0, rs[:3], cs)
	assert.True(t, errors.Is(err, common.ErrBadArg))
	bad := append([]float64{}, rs...)
	bad[0] += 0.1
	_, err = compo.OptimizeTargetFreqs(q0, bad, cs)
	assert.True(t, errors.Is(err, common.ErrBadArg), "sums do not add to one")
}

func TestAdjust(t *testing.T) {
	sb, err := score.NewProtein(score.Blosum62(), 11, 1)
	require.NoError(t, err)
	qcodes, _ := seqblk.EncodeProtein([]byte("AAAAAAAAAALLLLLLLLLLKKKKKEEEEGGGGPPPWWWW"))
	qc, _ := compo.Composition(qcodes)

	adj, err := compo.Adjust(sb, qc, qc)
	require.NoError(t, err)
	assert.NotSame(t, &sb.Matrix[1][1], &adj.Matrix[1][1])
	n := len(sb.Matrix)
	changed := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, adj.Matrix[i][j], adj.Matrix[j][i], "not symmetric at", i, j)
			if adj.Matrix[i][j] != sb.Matrix[i][j] {
				changed++
			}
		}
	}
	assert.Greater(t, changed, 0)
	x := seqblk.AaAlphabet - 1
	for i := 0; i < n; i++ {
		assert.Equal(t, sb.Matrix[0][i], adj.Matrix[0][i], "sentinel row changed")
		assert.Equal(t, sb.Matrix[i][21], adj.Matrix[i][21], "X column changed")
		assert.Equal(t, sb.Matrix[x][i], adj.Matrix[x][i])
	}
	assert.Equal(t, sb.GapOpen, adj.GapOpen)

	na, _ := score.NewNa(1, -3, 5, 2)
	_, err = compo.Adjust(na, qc, qc)
	assert.True(t, errors.Is(err, common.ErrBadArg))
}

func TestRelEntropy(t *testing.T) {
	bg := compo.Background()
	assert.InDelta(t, 0, compo.RelEntropy(bg, bg, 1e-6), 1e-12)
	assert.InDelta(t, 1, compo.CosSim(bg, bg), 1e-12)

	skew := make([]float64, compo.N)
	skew[0] = 1
	assert.InDelta(t, -math.Log(bg[0]), compo.RelEntropy(skew, bg, 1e-6), 1e-9)
	assert.Greater(t, compo.RelEntropy(bg, skew, 1e-6), compo.RelEntropy(skew, bg, 1e-6),
		"zeros in q cost more than zeros in p")
	assert.Less(t, compo.CosSim(skew, bg), 1.0)
	assert.Zero(t, compo.CosSim(skew, make([]float64, compo.N)))
}
