package gapalign_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/andrew-torda/gapx/pkg/arena"
	"github.com/andrew-torda/gapx/pkg/common"
	gpa "github.com/andrew-torda/gapx/pkg/gapalign"
	"github.com/andrew-torda/gapx/pkg/hsp"
	"github.com/andrew-torda/gapx/pkg/lookup"
	"github.com/andrew-torda/gapx/pkg/randseq"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/seqblk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const huge = 1 << 20 // an X-drop that never cuts anything

func na(t testing.TB, s string) []byte {
	c, err := seqblk.EncodeNa([]byte(s))
	require.NoError(t, err)
	return c
}

func naBlock(t testing.TB, reward, penalty, open, extend int32) *score.Block {
	sb, err := score.NewNa(reward, penalty, open, extend)
	require.NoError(t, err)
	return sb
}

func engine(t testing.TB, sb *score.Block, opts gpa.Options) *gpa.Engine {
	e, err := gpa.New(sb, opts, gpa.Sizing{MaxQuery: 100, MaxSubject: 100, Contexts: 2})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// scriptScore adds up an alignment from its script.
func scriptScore(sb *score.Block, q, s []byte, es hsp.EditScript) int32 {
	var sc int32
	i, j := 0, 0
	for _, r := range es {
		switch r.Op {
		case hsp.OpSub:
			for k := 0; k < int(r.N); k++ {
				sc += sb.Score(q[i], s[j])
				i++
				j++
			}
		case hsp.OpGapQuery:
			sc -= sb.GapOpen + r.N*sb.GapExtend
			j += int(r.N)
		case hsp.OpGapSubject:
			sc -= sb.GapOpen + r.N*sb.GapExtend
			i += int(r.N)
		}
	}
	return sc
}

var methods = []struct {
	name   string
	method gpa.Method
	greedy gpa.GreedyVariant
}{
	{"dp", gpa.DP, gpa.GreedyScore},
	{"full", gpa.Full, gpa.GreedyScore},
	{"greedy", gpa.Greedy, gpa.GreedyScore},
	{"greedytb", gpa.Greedy, gpa.GreedyTraceback},
}

// One mismatch at position 4, everything else matches.
func TestConcrete(t *testing.T) {
	q := na(t, "ACGTACGTAAGGCCTT")
	s := na(t, "ACGTTCGTAAGGCCTT")
	sb := naBlock(t, 1, -2, 5, 2)
	sb.XDropGapped = 10
	for _, m := range methods {
		for _, tb := range []bool{false, true} {
			opts := gpa.DefaultOptions()
			opts.Method, opts.Greedy, opts.Traceback = m.method, m.greedy, tb
			e := engine(t, sb, opts)
			c, err := e.Extend(q, s, 0, 0)
			require.NoError(t, err, m.name)
			assert.Equal(t, int32(13), c.Score, m.name)
			assert.Equal(t, hsp.Region{QStart: 0, QEnd: 16, SStart: 0, SEnd: 16}, c.Region, m.name)
			assert.Equal(t, int32(1), c.SeedScore)
			assert.Equal(t, int32(0), c.Left)
			assert.Equal(t, int32(12), c.Right)
			require.NoError(t, c.Check())
			if tb || m.greedy == gpa.GreedyTraceback {
				assert.Equal(t, "16M", c.Script.CIGAR(), m.name)
			} else {
				assert.Nil(t, c.Script)
			}
			assert.False(t, c.HasIdent)
		}
	}
}

// Past the first ten residues nothing matches. Everything has to stop
// there, long before the end.
func TestAllMismatch(t *testing.T) {
	q := na(t, "ACGTACGTAC"+"CCCCCCCCCCCCCCCCCCCC")
	s := na(t, "ACGTACGTAC"+"GGGGGGGGGGGGGGGGGGGG")
	sb := naBlock(t, 1, -2, 5, 2)
	sb.XDropGapped = 10
	for _, m := range methods {
		opts := gpa.DefaultOptions()
		opts.Method, opts.Greedy = m.method, m.greedy
		e := engine(t, sb, opts)
		c, err := e.Extend(q, s, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int32(10), c.Score, m.name)
		assert.Equal(t, 10, c.QEnd, m.name)
		assert.Equal(t, 10, c.SEnd, m.name)
		assert.Less(t, c.QEnd, len(q))
	}
}

var onewayCases = []struct {
	a, b            string
	reward, penalty int32
	open, extend    int32
	score           int32
	qlen, slen      int
}{
	{"ACGT", "ACGT", 1, -2, 5, 2, 4, 4, 4},
	{"ACGTTTACGT", "ACGTACGT", 5, -4, 5, 2, 31, 10, 8},
	{"ACGTACGT", "ACGTTTACGT", 5, -4, 5, 2, 31, 8, 10},
	{"AAAA", "CCCC", 1, -2, 5, 2, 0, 0, 0},
	{"ACGTCCCCCCCCCCACGT", "ACGTGGGGGGGGGGACGT", 1, -2, 5, 2, 4, 4, 4},
	{"", "ACGT", 1, -2, 5, 2, 0, 0, 0},
	{"ACGT", "", 1, -2, 5, 2, 0, 0, 0},
}

// Hand worked extensions from the origin. Both X-drop methods have to
// find the same as the full matrix.
func TestOneWay(t *testing.T) {
	for i, x := range onewayCases {
		sb := naBlock(t, x.reward, x.penalty, x.open, x.extend)
		e := engine(t, sb, gpa.DefaultOptions())
		a, b := na(t, x.a), na(t, x.b)
		full, err := e.Anchored(a, b, true)
		require.NoError(t, err)
		if full.Score != x.score || full.QLen != x.qlen || full.SLen != x.slen {
			t.Fatal("case", i, x.a, x.b, "wanted", x.score, x.qlen, x.slen, "got", full)
		}
		for _, xdrop := range []int32{huge, 10} {
			dp, err := e.SemiGapped(a, b, xdrop, true)
			require.NoError(t, err)
			sameOneWay(t, sb, a, b, full, dp, fmt.Sprintf("case %d xdrop %d", i, xdrop))
		}
		back, err := e.Backwards(rev(a), rev(b), huge)
		require.NoError(t, err)
		assert.Equal(t, full.Score, back.Score, "case %d backwards", i)
		g, err := e.GreedyOneWay(a, b, huge, gpa.GreedyTraceback)
		require.NoError(t, err)
		assert.Equal(t, full.Score, g.Score, "case %d greedy", i)
		assert.Equal(t, scriptScoreOf(t, sb, a, b, g.CIGAR), g.Score, "case %d greedy script", i)
	}
}

// sameOneWay checks two extensions reach the same score and end.
// Equal scoring scripts may place a gap differently, so the script is
// only checked for its score.
func sameOneWay(t *testing.T, sb *score.Block, a, b []byte, want, got gpa.OneWay, msg string) {
	t.Helper()
	assert.Equal(t, want.Score, got.Score, msg)
	assert.Equal(t, want.QLen, got.QLen, msg)
	assert.Equal(t, want.SLen, got.SLen, msg)
	assert.Equal(t, want.Score, scriptScoreOf(t, sb, a[:got.QLen], b[:got.SLen], got.CIGAR), msg+" script")
}

func rev(s []byte) []byte {
	t := make([]byte, len(s))
	for i, c := range s {
		t[len(s)-1-i] = c
	}
	return t
}

// scriptScoreOf parses a CIGAR back into a script and scores it.
func scriptScoreOf(t *testing.T, sb *score.Block, q, s []byte, cigar string) int32 {
	var es hsp.EditScript
	n := int32(0)
	for _, c := range cigar {
		switch c {
		case 'M':
			es.Add(hsp.OpSub, n)
		case 'D':
			es.Add(hsp.OpGapQuery, n)
		case 'I':
			es.Add(hsp.OpGapSubject, n)
		default:
			n = 10*n + int32(c-'0')
			continue
		}
		n = 0
	}
	require.Equal(t, cigar, es.CIGAR())
	return scriptScore(sb, q, s, es)
}

// related makes a random sequence and a copy with mutations and indels.
func related(rnd *rand.Rand, n int, frac float64, indel int) ([]byte, []byte) {
	a := randseq.New(rnd, randseq.Na, n)
	b := append([]byte{}, a...)
	randseq.Mutate(rnd, randseq.Na, frac, b)
	b, _ = randseq.DelN(rnd, indel, b)
	b = randseq.InsN(rnd, randseq.Na, indel, b)
	return a, b
}

// With an X-drop that cuts nothing, the X-drop DP has to be the same
// as the full matrix, right down to the script. Greedy has to get the
// same score.
func TestAgainstFull(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	sb := naBlock(t, 2, -3, 5, 2)
	e := engine(t, sb, gpa.DefaultOptions())
	for n := 0; n < 20; n++ {
		a, b := related(rnd, 60+rnd.Intn(150), 0.08, 3)
		full, err := e.Anchored(a, b, true)
		require.NoError(t, err)
		dp, err := e.SemiGapped(a, b, huge, true)
		require.NoError(t, err)
		assert.Equal(t, full, dp, "run %d", n)
		noTb, err := e.SemiGapped(a, b, huge, false)
		require.NoError(t, err)
		assert.Equal(t, full.Score, noTb.Score)
		assert.Equal(t, full.Score, scriptScoreOf(t, sb, a, b, full.CIGAR))

		for _, v := range []gpa.GreedyVariant{gpa.GreedyScore, gpa.GreedyTraceback} {
			g, err := e.GreedyOneWay(a, b, huge, v)
			require.NoError(t, err)
			assert.Equal(t, full.Score, g.Score, "run %d greedy %s", n, v)
		}
		g, _ := e.GreedyOneWay(a, b, huge, gpa.GreedyTraceback)
		assert.Equal(t, g.Score, scriptScoreOf(t, sb, a, b, g.CIGAR), "run %d", n)
	}
}

// An X-drop can only lose score, never invent it.
func TestXDropPrunes(t *testing.T) {
	rnd := rand.New(rand.NewSource(12))
	sb := naBlock(t, 1, -2, 5, 2)
	e := engine(t, sb, gpa.DefaultOptions())
	for n := 0; n < 20; n++ {
		a, b := related(rnd, 200, 0.25, 4)
		full, err := e.Anchored(a, b, false)
		require.NoError(t, err)
		for _, xd := range []int32{5, 10, 20} {
			dp, err := e.SemiGapped(a, b, xd, true)
			require.NoError(t, err)
			assert.LessOrEqual(t, dp.Score, full.Score)
			assert.Equal(t, dp.Score, scriptScoreOf(t, sb, a, b, dp.CIGAR))
			g, err := e.GreedyOneWay(a, b, xd, gpa.GreedyTraceback)
			require.NoError(t, err)
			assert.LessOrEqual(t, g.Score, full.Score)
			assert.Equal(t, g.Score, scriptScoreOf(t, sb, a, b, g.CIGAR))
		}
	}
}

// Every candidate must add up, and its script must give its score.
func TestDecomposition(t *testing.T) {
	rnd := rand.New(rand.NewSource(13))
	sb := naBlock(t, 1, -2, 5, 2)
	for _, m := range methods {
		opts := gpa.DefaultOptions()
		opts.Method, opts.Greedy, opts.Traceback = m.method, m.greedy, true
		e := engine(t, sb, opts)
		for n := 0; n < 30; n++ {
			q, s := related(rnd, 150, 0.1, 3)
			qoff := rnd.Intn(len(q))
			soff := min(qoff, len(s)-1)
			c, err := e.Extend(q, s, qoff, soff)
			require.NoError(t, err)
			require.NoError(t, c.Check(), m.name)
			assert.Equal(t, c.Left+c.Right+c.SeedScore, c.Score)
			assert.GreaterOrEqual(t, c.Left, int32(0))
			assert.GreaterOrEqual(t, c.Right, int32(0))
			assert.Equal(t, c.Score, scriptScore(sb, q[c.QStart:c.QEnd], s[c.SStart:c.SEnd], c.Script),
				"%s run %d %s", m.name, n, c.Script.CIGAR())
			assert.True(t, c.QStart <= qoff && qoff < c.QEnd)
		}
	}
}

// q and s differ by one deleted base. Gaps cost the same as in the
// greedy aligner without gap costs.
func TestIdentity(t *testing.T) {
	q := na(t, "ACGTTGCATGCAAGTCCTGA")
	s := na(t, "ACGTTGCATGAAGTCCTGA")
	sb := naBlock(t, 2, -3, 0, 0)
	opts := gpa.DefaultOptions()
	opts.Method, opts.Greedy = gpa.Greedy, gpa.GreedyIdentity
	e := engine(t, sb, opts)
	c, err := e.Extend(q, s, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(34), c.Score)
	assert.Equal(t, hsp.Region{QStart: 0, QEnd: 20, SStart: 0, SEnd: 19}, c.Region)
	require.True(t, c.HasIdent)
	assert.InDelta(t, 0.95, c.Ident, 1e-12)

	dpsb := naBlock(t, 2, -3, 0, gpa.NonAffineGap(sb))
	d := engine(t, dpsb, gpa.DefaultOptions())
	c2, err := d.Extend(q, s, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, c.Score, c2.Score)
	assert.False(t, c2.HasIdent)

	opts.Traceback = true
	e = engine(t, sb, opts)
	c, err = e.Extend(q, s, 0, 0)
	require.NoError(t, err)
	assert.True(t, c.HasIdent, "traceback should keep identity")
	st, err := c.Script.Stats(q[c.QStart:c.QEnd], s[c.SStart:c.SEnd])
	require.NoError(t, err)
	assert.Equal(t, 19, st.Identities)
	assert.Equal(t, 1, st.GapColumns)
}

func TestBadArgs(t *testing.T) {
	sb := naBlock(t, 1, -2, 5, 2)
	e := engine(t, sb, gpa.DefaultOptions())
	_, err := e.Extend(nil, na(t, "ACGT"), 0, 0)
	assert.True(t, errors.Is(err, common.ErrBadArg))

	// a start pair off the end is pulled back in
	c, err := e.Extend(na(t, "ACGT"), na(t, "ACGT"), 10, -3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.QSeed)
	assert.Equal(t, 0, c.SSeed)

	prot, err := score.NewProtein(score.Blosum62(), 11, 1)
	require.NoError(t, err)
	opts := gpa.DefaultOptions()
	opts.Method = gpa.Greedy
	_, err = gpa.New(prot, opts, gpa.Sizing{})
	assert.True(t, errors.Is(err, common.ErrBadArg), "greedy protein")

	odd := naBlock(t, 1, -2, 0, 0)
	opts.Greedy = gpa.GreedyIdentity
	_, err = gpa.New(odd, opts, gpa.Sizing{})
	assert.True(t, errors.Is(err, common.ErrBadArg), "odd reward, no gap costs")

	for _, o := range []gpa.Options{
		{Method: 7, WordSize: 11},
		{Greedy: 9, WordSize: 11},
		{WordSize: 0},
		{WordSize: 11, NoRealloc: true},
		{WordSize: 11, MaxHSPs: -1},
	} {
		_, err = gpa.New(sb, o, gpa.Sizing{})
		assert.True(t, errors.Is(err, common.ErrBadArg), "%+v", o)
	}
	_, err = gpa.New(nil, gpa.DefaultOptions(), gpa.Sizing{})
	assert.Error(t, err)
	_, err = gpa.New(sb, gpa.DefaultOptions(), gpa.Sizing{MaxSubject: -1})
	assert.Error(t, err)
}

// Running out of scratch space is an allocation error.
func TestArenaLimit(t *testing.T) {
	rnd := rand.New(rand.NewSource(14))
	sb := naBlock(t, 1, -2, 5, 2)
	opts := gpa.DefaultOptions()
	opts.ArenaLimit = 4096
	e := engine(t, sb, opts)
	q := randseq.New(rnd, randseq.Na, 5000)
	_, err := e.Extend(q, q, 0, 0)
	assert.True(t, errors.Is(err, common.ErrAlloc), "got %v", err)
}

func TestMmap(t *testing.T) {
	rnd := rand.New(rand.NewSource(15))
	sb := naBlock(t, 1, -2, 5, 2)
	opts := gpa.DefaultOptions()
	opts.Backing = arena.Mmap
	opts.Traceback = true
	e, err := gpa.New(sb, opts, gpa.Sizing{MaxQuery: 1000, MaxSubject: 1000})
	require.NoError(t, err)
	q, s := related(rnd, 1000, 0.05, 5)
	c, err := e.Extend(q, s, 500, 500)
	require.NoError(t, err)
	require.NoError(t, c.Check())
	assert.Greater(t, e.Stats().ScratchBytes, 0)
	assert.NoError(t, e.Close())
}

// seedSet is a query of 100 bases, its two strands and a subject.
func seedSet(t *testing.T, subject func(q []byte) []byte) (*seqblk.Contexts, *seqblk.Block) {
	rnd := rand.New(rand.NewSource(16))
	q := randseq.New(rnd, randseq.Na, 100)
	blk, amb := seqblk.PackCodes(subject(q))
	require.Empty(t, amb)
	return seqblk.NaStrands(q), blk
}

func seedOpts() gpa.Options {
	opts := gpa.DefaultOptions()
	opts.WordSize = 8
	opts.MinScore = 30
	return opts
}

func TestExtendSeeds(t *testing.T) {
	ctx, sub := seedSet(t, func(q []byte) []byte { return q })
	sb := naBlock(t, 1, -2, 5, 2)
	opts := seedOpts()
	opts.Traceback = true
	e := engine(t, sb, opts)

	var seeds []lookup.Seed
	for p := 0; p <= 90; p += 10 {
		seeds = append(seeds, lookup.Seed{QOff: int32(1 + p), SOff: int32(p)})
	}
	seeds = append(seeds, lookup.Seed{QOff: 13, SOff: 10}, lookup.Seed{QOff: 41, SOff: 45})

	list, err := hsp.NewList(opts.ListCap, 0, false)
	require.NoError(t, err)
	n, err := e.ExtendSeeds(ctx, sub, seeds, list)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Equal(t, 1, list.Len())
	h := list.At(0)
	assert.Equal(t, hsp.Region{QStart: 1, QEnd: 101, SStart: 0, SEnd: 100}, h.Region())
	assert.Equal(t, int32(100), h.Score())
	assert.Equal(t, 0, h.Context())
	assert.Equal(t, "100M", h.Script().CIGAR())
	st := e.Stats()
	assert.Equal(t, len(seeds), st.Seeds)
	assert.Equal(t, 2, st.Skipped, "off diagonal seeds inside the HSP")

	n, err = e.ExtendSeeds(ctx, sub, seeds, list)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing new the second time")
	assert.Equal(t, 1, list.Len())

	_, err = e.ExtendSeeds(ctx, sub, []lookup.Seed{{QOff: 0, SOff: 0}}, list)
	assert.True(t, errors.Is(err, common.ErrBadArg), "seed on a sentinel")
	_, err = e.ExtendSeeds(ctx, sub, []lookup.Seed{{QOff: 95, SOff: 0}}, list)
	assert.True(t, errors.Is(err, common.ErrBadArg), "word runs off the context")
	_, err = e.ExtendSeeds(nil, sub, seeds, list)
	assert.True(t, errors.Is(err, common.ErrBadArg))
}

// The seeds the lookup table finds give the same answer.
func TestSeedsFromLookup(t *testing.T) {
	ctx, sub := seedSet(t, func(q []byte) []byte { return q })
	sb := naBlock(t, 1, -2, 5, 2)
	e := engine(t, sb, seedOpts())
	tbl, err := lookup.NewNaTable(ctx, 8)
	require.NoError(t, err)
	sc, err := lookup.NewScanner(lookup.ScanContig, tbl, lookup.Options{})
	require.NoError(t, err)
	seeds, err := lookup.All(sc, sub)
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
	list, _ := hsp.NewList(4, 0, false)
	_, err = e.ExtendSeeds(ctx, sub, seeds, list)
	require.NoError(t, err)
	require.GreaterOrEqual(t, list.Len(), 1)
	list.SortByScore()
	assert.Equal(t, int32(100), list.At(0).Score())
	assert.Equal(t, 0, list.At(0).Context())
}

func TestListFull(t *testing.T) {
	ctx, sub := seedSet(t, func(q []byte) []byte { return append(append([]byte{}, q...), q...) })
	sb := naBlock(t, 1, -2, 5, 2)
	seeds := []lookup.Seed{{QOff: 1, SOff: 0}, {QOff: 1, SOff: 100}}

	opts := seedOpts()
	opts.NoRealloc, opts.ListCap = true, 1
	e := engine(t, sb, opts)
	list, err := hsp.NewList(1, 0, true)
	require.NoError(t, err)
	n, err := e.ExtendSeeds(ctx, sub, seeds, list)
	assert.True(t, errors.Is(err, hsp.ErrCapacity))
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, list.At(0).SubjectStart())

	// An engine that may evict still reports a full list that was made
	// not to grow.
	e = engine(t, sb, seedOpts())
	list, err = hsp.NewList(1, 0, true)
	require.NoError(t, err)
	n, err = e.ExtendSeeds(ctx, sub, seeds, list)
	assert.ErrorIs(t, err, hsp.ErrCapacity)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, list.Len())
	assert.Equal(t, 0, list.At(0).SubjectStart())

	opts = seedOpts()
	opts.MaxHSPs = 1
	e = engine(t, sb, opts)
	list, err = hsp.NewList(1, 1, false)
	require.NoError(t, err)
	n, err = e.ExtendSeeds(ctx, sub, seeds, list)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "equal score does not push out the first")
	assert.Equal(t, 1, list.Len())

	list, _ = hsp.NewList(1, 0, false)
	n, err = e.ExtendSeeds(ctx, sub, seeds, list)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTracebackPass(t *testing.T) {
	ctx, sub := seedSet(t, func(q []byte) []byte { return q })
	sb := naBlock(t, 1, -2, 5, 2)
	for _, m := range methods {
		opts := seedOpts()
		opts.Method, opts.Greedy = m.method, m.greedy
		e := engine(t, sb, opts)
		in, _ := hsp.NewList(2, 0, false)
		in.Subject = 7
		_, err := e.ExtendSeeds(ctx, sub, []lookup.Seed{{QOff: 21, SOff: 20}}, in)
		require.NoError(t, err)
		require.Equal(t, 1, in.Len())
		assert.Equal(t, m.greedy == gpa.GreedyTraceback, in.At(0).HasScript(), m.name)

		out, err := e.TracebackPass(ctx, sub, in)
		require.NoError(t, err)
		assert.True(t, out.TracebackDone())
		assert.False(t, in.TracebackDone())
		assert.Equal(t, 7, out.Subject)
		require.Equal(t, 1, out.Len())
		h := out.At(0)
		assert.Equal(t, in.At(0).Region(), h.Region())
		assert.Equal(t, "100M", h.Script().CIGAR(), m.name)
		c := h.Candidate()
		assert.NoError(t, c.Check())

		_, err = e.TracebackPass(ctx, sub, out)
		assert.True(t, errors.Is(err, common.ErrBadArg), "second traceback")
		_, err = e.ExtendSeeds(ctx, sub, nil, out)
		assert.True(t, errors.Is(err, common.ErrBadArg), "adding after traceback")
	}
}

// A protein pass with composition adjustment still finds the self hit.
func TestCompoTraceback(t *testing.T) {
	rnd := rand.New(rand.NewSource(17))
	prot, err := score.NewProtein(score.Blosum62(), 11, 1)
	require.NoError(t, err)
	opts := gpa.DefaultOptions()
	opts.WordSize = 3
	opts.CompoAdjust = true
	e := engine(t, prot, opts)
	q := randseq.New(rnd, randseq.Protein, 80)
	ctx := seqblk.NewContexts(seqblk.AaSentinel, q)
	sub := seqblk.FromCodes(append([]byte{}, q...))
	in, _ := hsp.NewList(1, 0, false)
	_, err = e.ExtendSeeds(ctx, sub, []lookup.Seed{{QOff: 11, SOff: 10}}, in)
	require.NoError(t, err)
	require.Equal(t, 1, in.Len())
	out, err := e.TracebackPass(ctx, sub, in)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "80M", out.At(0).Script().CIGAR())

	_, err = e.ExtendSeeds(ctx, seqblk.FromCodes(nil), nil, in)
	assert.NoError(t, err)
	packed, _ := seqblk.PackCodes([]byte{0, 1, 2})
	_, err = e.ExtendSeeds(ctx, packed, nil, in)
	assert.True(t, errors.Is(err, common.ErrBadArg), "packed protein subject")
}

func BenchmarkExtend(b *testing.B) {
	rnd := rand.New(rand.NewSource(18))
	q, s := related(rnd, 5000, 0.05, 20)
	sb, _ := score.NewNa(1, -2, 5, 2)
	for _, m := range methods {
		if m.method == gpa.Full {
			continue
		}
		opts := gpa.DefaultOptions()
		opts.Method, opts.Greedy = m.method, m.greedy
		e, err := gpa.New(sb, opts, gpa.Sizing{MaxQuery: len(q), MaxSubject: len(s)})
		if err != nil {
			b.Fatal(err)
		}
		b.Run(m.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := e.Extend(q, s, 2500, 2500); err != nil {
					b.Fatal(err)
				}
			}
		})
		e.Close()
	}
}
