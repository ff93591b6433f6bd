// 13 Sep 2026

package gapalign

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/arena"
	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/hsp"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// The greedy aligners work on penalties rather than scores. With
// match reward R and mismatch penalty p, everything is doubled so it
// stays integer:
//
//	mismatch  x = 2(R+p)
//	gap open  o = 2*open
//	gap ext   e = 2*extend + R
//
// and a point (i, j) reached with total penalty s has score
// (R(i+j) - s) / 2. Without gap costs, every difference costs x, which
// is the same as a gap costing p + R/2 per column. That only comes out
// integer if R is even.

// none marks a diagonal that cannot be reached.
const none int32 = -1 << 30

// units are the doubled penalties.
type units struct {
	r, x, o, e int
}

// greedyUnits converts a nucleotide scoring block. With affine false,
// or with no gap costs at all, gaps cost the same as mismatches.
func greedyUnits(sb *score.Block, affine bool) (units, error) {
	R, p := int(sb.Reward), -int(sb.Penalty)
	if sb.Protein || R <= 0 || p <= 0 {
		return units{}, fmt.Errorf("greedy alignment needs nucleotide reward and penalty, not %d/%d: %w",
			R, -p, common.ErrBadArg)
	}
	u := units{r: R, x: 2 * (R + p)}
	if affine && sb.GapOpen+sb.GapExtend > 0 {
		u.o = 2 * int(sb.GapOpen)
		u.e = 2*int(sb.GapExtend) + R
		return u, nil
	}
	if R%2 != 0 {
		return units{}, fmt.Errorf("greedy without gap costs needs an even reward, not %d: %w", R, common.ErrBadArg)
	}
	u.e = u.x
	return u, nil
}

// NonAffineGap is the per column gap cost the greedy aligner uses when
// there are no gap costs. A DP alignment with GapOpen 0 and this as
// GapExtend scores the same.
func NonAffineGap(sb *score.Block) int32 { return -sb.Penalty + sb.Reward/2 }

// front is the furthest subject offset on each diagonal k = j - i for
// one penalty.
type front struct {
	lo, hi int // lo > hi if empty
	off    []int32
	mm     []int32 // mismatches on the way, only when counting
}

func (f *front) get(k int) int32 {
	if k < f.lo || k > f.hi {
		return none
	}
	return f.off[k-f.lo]
}

func (f *front) mmAt(k int) int32 {
	if f.mm == nil {
		return 0
	}
	return f.mm[k-f.lo]
}

func (f *front) set(k int, v, mm int32) {
	f.off[k-f.lo] = v
	if f.mm != nil {
		f.mm[k-f.lo] = mm
	}
}

// trim drops unreachable diagonals from both ends.
func (f *front) trim() {
	lo, hi := f.lo, f.hi
	for lo <= hi && f.off[lo-f.lo] == none {
		lo++
	}
	for hi >= lo && f.off[hi-f.lo] == none {
		hi--
	}
	if lo > hi {
		f.lo, f.hi = 1, 0
		return
	}
	f.off = f.off[lo-f.lo : hi-f.lo+1]
	if f.mm != nil {
		f.mm = f.mm[lo-f.lo : hi-f.lo+1]
	}
	f.lo, f.hi = lo, hi
}

// wfSet is the three fronts for one penalty: ending in a substitution
// or a match, ending in a gap in the query, ending in a gap in the
// subject.
type wfSet struct {
	m, i, d front
}

// greedyResult is the end point with the best score.
type greedyResult struct {
	score2   int // twice the score
	i, j     int
	s, k     int
	mm       int
	matches  int // only after counts
	gaps     int // gap columns, only after counts
	script   hsp.EditScript
}

// wavefront holds the state of one greedy extension.
type wavefront struct {
	a, b    view
	u       units
	keep    bool // keep every front, for traceback
	countMM bool
	sets    []wfSet
	ring    int
	ar      *arena.Arena
	best    greedyResult
}

func (w *wavefront) slot(s int) *wfSet {
	if w.keep {
		return &w.sets[s]
	}
	return &w.sets[s%w.ring]
}

// src is the set for penalty s, or nil before the start.
func (w *wavefront) src(s int) *wfSet {
	if s < 0 {
		return nil
	}
	return w.slot(s)
}

func (w *wavefront) alloc(f *front, lo, hi int) error {
	var err error
	n := hi - lo + 1
	f.lo, f.hi = lo, hi
	if f.off, err = w.ar.Int32s(n); err != nil {
		return err
	}
	if w.countMM {
		if f.mm, err = w.ar.Int32s(n); err != nil {
			return err
		}
	} else {
		f.mm = nil
	}
	for k := range f.off {
		f.off[k] = none
	}
	return nil
}

// slide runs along matches from (i, j).
func (w *wavefront) slide(i, j int) (int, int) {
	for i < w.a.n && j < w.b.n {
		c := w.a.at(i)
		if c > seqblk.NaT || c != w.b.at(j) {
			break
		}
		i++
		j++
	}
	return i, j
}

// found records a point if it is the best so far.
func (w *wavefront) found(s, k, i, j int, mm int32) {
	if sc := w.u.r*(i+j) - s; sc > w.best.score2 {
		w.best = greedyResult{score2: sc, i: i, j: j, s: s, k: k, mm: int(mm)}
	}
}

// step makes the fronts for penalty s. It returns false if they are
// all empty.
func (w *wavefront) step(s int, x2 int) (bool, error) {
	u, M, N := w.u, w.a.n, w.b.n
	if w.keep {
		w.sets = append(w.sets, wfSet{})
	}
	cur := w.slot(s)
	cur.m.lo, cur.m.hi, cur.i.lo, cur.i.hi, cur.d.lo, cur.d.hi = 1, 0, 1, 0, 1, 0
	fx, fo, fe := w.src(s-u.x), w.src(s-u.o-u.e), w.src(s-u.e)
	lo, hi := N+1, -M-1
	widen := func(f *front) {
		if f.lo <= f.hi {
			lo, hi = min(lo, f.lo), max(hi, f.hi)
		}
	}
	if fx != nil {
		widen(&fx.m)
	}
	if fo != nil {
		widen(&fo.m)
	}
	if fe != nil {
		widen(&fe.i)
		widen(&fe.d)
	}
	if lo > hi {
		return false, nil
	}
	lo, hi = max(lo-1, -M), min(hi+1, N)
	for _, f := range []*front{&cur.m, &cur.i, &cur.d} {
		if err := w.alloc(f, lo, hi); err != nil {
			return false, err
		}
	}
	for k := lo; k <= hi; k++ {
		iv, imm := none, int32(0)
		dv, dmm := none, int32(0)
		mv, mmm := none, int32(0)
		if fo != nil {
			if v := fo.m.get(k - 1); v != none {
				iv, imm = v+1, fo.m.mmAt(k-1)
			}
			if v := fo.m.get(k + 1); v != none {
				dv, dmm = v, fo.m.mmAt(k+1)
			}
		}
		if fe != nil {
			if v := fe.i.get(k - 1); v != none && v+1 > iv {
				iv, imm = v+1, fe.i.mmAt(k-1)
			}
			if v := fe.d.get(k + 1); v != none && v > dv {
				dv, dmm = v, fe.d.mmAt(k+1)
			}
		}
		if iv > int32(N) {
			iv = none
		}
		if dv != none && int(dv)-k > M {
			dv = none
		}
		if fx != nil {
			if v := fx.m.get(k); v != none && int(v)+1 <= N && int(v)+1-k <= M {
				mv, mmm = v+1, fx.m.mmAt(k)+1
			}
		}
		cur.i.set(k, iv, imm)
		cur.d.set(k, dv, dmm)
		pre, pmm := mv, mmm
		if dv > pre {
			pre, pmm = dv, dmm
		}
		if iv > pre {
			pre, pmm = iv, imm
		}
		if pre == none {
			continue
		}
		i, j := w.slide(int(pre)-k, int(pre))
		cur.m.set(k, int32(j), pmm)
		w.found(s, k, i, j, pmm)
	}
	thresh := w.best.score2 - x2
	for k := lo; k <= hi; k++ {
		if v := cur.m.get(k); v != none && u.r*(2*int(v)-k)-s < thresh {
			cur.m.set(k, none, 0)
			cur.i.set(k, none, 0)
			cur.d.set(k, none, 0)
		}
	}
	cur.m.trim()
	cur.i.trim()
	cur.d.trim()
	return cur.m.lo <= cur.m.hi, nil
}

// run does the whole extension.
func (w *wavefront) run(xdrop int32) error {
	u, M, N := w.u, w.a.n, w.b.n
	x2 := 2 * int(xdrop)
	maxBack := max(u.x, u.o+u.e)
	w.ring = maxBack + 1
	w.best = greedyResult{}
	w.sets = w.sets[:0]
	if !w.keep {
		for len(w.sets) < w.ring {
			w.sets = append(w.sets, wfSet{})
		}
	} else {
		w.sets = append(w.sets, wfSet{})
	}
	cur := w.slot(0)
	for _, f := range []*front{&cur.m, &cur.i, &cur.d} {
		if err := w.alloc(f, 0, 0); err != nil {
			return err
		}
	}
	cur.i.trim()
	cur.d.trim()
	i, j := w.slide(0, 0)
	cur.m.set(0, int32(j), 0)
	w.found(0, 0, i, j, 0)
	lastLive := 0
	for s := 1; s-lastLive <= maxBack; s++ {
		if u.r*(M+N)-s < w.best.score2-x2 {
			break
		}
		live, err := w.step(s, x2)
		if err != nil {
			return err
		}
		if live {
			lastLive = s
		}
	}
	return nil
}

// backtrace walks from the best point to the origin. Every front has
// to have been kept. Ties go the same way as in step.
func (w *wavefront) backtrace() hsp.EditScript {
	u := w.u
	var es hsp.EditScript
	const (
		inM = iota
		inI
		inD
	)
	s, k, j := w.best.s, w.best.k, int32(w.best.j)
	lane := inM
	for {
		switch lane {
		case inM:
			if s == 0 {
				es.Add(hsp.OpSub, j)
				es.Reverse()
				return es
			}
			cur := w.slot(s)
			mv := none
			if fx := w.src(s - u.x); fx != nil {
				if v := fx.m.get(k); v != none && int(v)+1 <= w.b.n && int(v)+1-k <= w.a.n {
					mv = v + 1
				}
			}
			dv, iv := cur.d.get(k), cur.i.get(k)
			pre, next := mv, inM
			if dv > pre {
				pre, next = dv, inD
			}
			if iv > pre {
				pre, next = iv, inI
			}
			es.Add(hsp.OpSub, j-pre)
			if next == inM {
				es.Add(hsp.OpSub, 1)
				j = pre - 1
				s -= u.x
			} else {
				j = pre
			}
			lane = next
		case inI:
			es.Add(hsp.OpGapQuery, 1)
			opened := false
			if fo := w.src(s - u.o - u.e); fo != nil {
				if v := fo.m.get(k - 1); v != none && v+1 == j {
					opened = true
				}
			}
			if opened {
				s -= u.o + u.e
				lane = inM
			} else {
				s -= u.e
			}
			k--
			j--
		case inD:
			es.Add(hsp.OpGapSubject, 1)
			opened := false
			if fo := w.src(s - u.o - u.e); fo != nil {
				if v := fo.m.get(k + 1); v != none && v == j {
					opened = true
				}
			}
			if opened {
				s -= u.o + u.e
				lane = inM
			} else {
				s -= u.e
			}
			k++
		}
	}
}

// counts works out matches and gap columns from the mismatch count.
// Only right when every difference costs x.
func (w *wavefront) counts() {
	b := &w.best
	diffs := b.s / w.u.x
	b.gaps = diffs - b.mm
	pairs := (b.i + b.j - b.gaps) / 2
	b.matches = pairs - b.mm
}

// greedy runs one direction of a greedy extension. The variant says
// what comes back.
func (e *Engine) greedy(a, b view, xdrop int32, v GreedyVariant) (extension, greedyResult, error) {
	affine := v != GreedyIdentity
	u, err := greedyUnits(e.sb, affine)
	if err != nil {
		return extension{}, greedyResult{}, err
	}
	w := &e.wf
	*w = wavefront{a: a, b: b, u: u, keep: v == GreedyTraceback, countMM: v == GreedyIdentity,
		sets: w.sets, ar: e.arena}
	if err := w.run(xdrop); err != nil {
		return extension{}, greedyResult{}, err
	}
	switch v {
	case GreedyTraceback:
		w.best.script = w.backtrace()
	case GreedyIdentity:
		w.counts()
	}
	r := w.best
	x := extension{score: int32(r.score2 / 2), qlen: r.i, slen: r.j, script: r.script}
	return x, r, nil
}
