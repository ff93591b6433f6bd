// 12 Sep 2026

package gapalign

import (
	"math"

	"github.com/andrew-torda/gapx/pkg/arena"
	"github.com/andrew-torda/gapx/pkg/hsp"
)

// neg is minus infinity for scores. Half of MinInt32, so that
// subtracting gap costs or adding sentinel scores cannot wrap.
const neg int32 = math.MinInt32 / 2

// cell is one column of the current DP row.
type cell struct {
	h int32 // best score
	d int32 // best ending in a gap that uses up query (vertical)
	r int32 // best ending in a gap that uses up subject (horizontal)
}

// Traceback states, one byte per cell. The low two bits say where h
// came from, the others whether the gaps were opened here.
const (
	fromSub byte = 0
	fromD   byte = 1
	fromR   byte = 2
	dOpen   byte = 1 << 2
	rOpen   byte = 1 << 3
)

// view is a sequence read forwards from base, or backwards. A left
// extension reads both sequences backwards from the seed.
type view struct {
	seq  []byte
	base int
	step int
	n    int
}

func (v view) at(i int) byte { return v.seq[v.base+v.step*i] }

// rightView is everything after off.
func rightView(seq []byte, off int) view { return view{seq, off + 1, 1, len(seq) - off - 1} }

// leftView is everything before off, backwards.
func leftView(seq []byte, off int) view { return view{seq, off - 1, -1, off} }

// extension is what one direction gives.
type extension struct {
	score      int32
	qlen, slen int            // residues used
	script     hsp.EditScript // from the seed outwards
}

// tbuf keeps the traceback states of the rows. Only the columns that
// were computed in a row are stored, starting at first.
type tbuf struct {
	st    []byte
	start []int
	first []int
}

func (t *tbuf) reset() {
	t.st, t.start, t.first = t.st[:0], t.start[:0], t.first[:0]
}

func (t *tbuf) startRow(first int) {
	t.start = append(t.start, len(t.st))
	t.first = append(t.first, first)
}

func (t *tbuf) put(s byte)         { t.st = append(t.st, s) }
func (t *tbuf) at(i, j int) byte   { return t.st[t.start[i]+j-t.first[i]] }
func (t *tbuf) size() (nbytes int) { return cap(t.st) }

// walk goes back from (bi, bj) to the origin and returns the script
// from the origin outwards.
func (t *tbuf) walk(bi, bj int) hsp.EditScript {
	var es hsp.EditScript
	i, j := bi, bj
	lane := fromSub
	for i > 0 || j > 0 {
		st := t.at(i, j)
		switch lane {
		case fromSub:
			switch st & 3 {
			case fromSub:
				es.Add(hsp.OpSub, 1)
				i--
				j--
			case fromD:
				lane = fromD
			case fromR:
				lane = fromR
			}
		case fromD:
			es.Add(hsp.OpGapSubject, 1)
			if st&dOpen != 0 {
				lane = fromSub
			}
			i--
		case fromR:
			es.Add(hsp.OpGapQuery, 1)
			if st&rOpen != 0 {
				lane = fromSub
			}
			j--
		}
	}
	es.Reverse()
	return es
}

// semiGapped is the X-drop dynamic programming extension in one
// direction. a is the query, b the subject, both starting just past
// the seed. Rows are query positions. Only a window of columns is
// alive in each row. It loses cells on the left as they drop more than
// xdrop below the best score and ends on the right at the first dead
// cell past the end of the row above.
//
// On ties, a substitution wins over a gap and a vertical gap (using up
// query) wins over a horizontal one. A gap is taken as newly opened
// when opening and extending score the same.
func (e *Engine) semiGapped(a, b view, xdrop int32, tb bool) (extension, error) {
	sb := e.sb
	ext := sb.GapExtend
	goe := sb.GapOpen + ext
	M, N := a.n, b.n
	cells, err := arena.Slice[cell](e.arena, N+1)
	if err != nil {
		return extension{}, err
	}
	if tb {
		e.tb.reset()
		e.tb.startRow(0)
		e.tb.put(fromSub)
	}
	var best int32
	bi, bj := 0, 0

	cells[0] = cell{0, neg, neg}
	last := 0
	for j := 1; j <= N; j++ {
		r := -(sb.GapOpen + int32(j)*ext)
		if r < -xdrop {
			break
		}
		cells[j] = cell{r, neg, r}
		last = j
		if tb {
			st := fromR
			if j == 1 {
				st |= rOpen
			}
			e.tb.put(st)
		}
	}

	first := 0
	for i := 1; i <= M; i++ {
		row := sb.Matrix[a.at(i-1)]
		if tb {
			e.tb.startRow(first)
		}
		diag := neg             // h of row i-1, column j-1
		hprev, rprev := neg, neg // h and r of this row, column j-1
		newFirst, newLast := -1, -1
		for j := first; j <= N; j++ {
			ph, pd := neg, neg
			if j <= last {
				ph, pd = cells[j].h, cells[j].d
			}
			var st byte
			d := pd - ext
			if o := ph - goe; o >= d {
				d = o
				st |= dOpen
			}
			r := rprev - ext
			if o := hprev - goe; o >= r {
				r = o
				st |= rOpen
			}
			h := neg
			if j > 0 {
				h = diag + row[b.at(j-1)]
			}
			src := fromSub
			if d > h {
				h, src = d, fromD
			}
			if r > h {
				h, src = r, fromR
			}
			diag = ph
			if tb {
				e.tb.put(st | src)
			}
			if h < best-xdrop {
				cells[j] = cell{neg, neg, neg}
				hprev, rprev = neg, neg
				if j > last {
					break
				}
				continue
			}
			cells[j] = cell{h, d, r}
			hprev, rprev = h, r
			if newFirst < 0 {
				newFirst = j
			}
			newLast = j
			if h > best {
				best, bi, bj = h, i, j
			}
		}
		if newFirst < 0 {
			break
		}
		first, last = newFirst, newLast
	}
	x := extension{score: best, qlen: bi, slen: bj}
	if tb {
		x.script = e.tb.walk(bi, bj)
	}
	return x, nil
}
