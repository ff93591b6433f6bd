// Feb 2018
// Sep 2026 anchored at the seed, free end, integer scores in and out

package gapalign

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/matrix"
)

// maxFullCells stops the full matrix method being used on something
// it would take forever (and all the memory) to do.
const maxFullCells = 1 << 26

const bigf float32 = -1e+30

// anchored implements Gotoh, O. J. Mol. Biol. (1982) 162, 705-708,
// but the alignment must start at the origin and may end anywhere.
// There is no X-drop, so this is the answer the X-drop versions are
// trying to get. Memory is the full matrix.
// Tie-breaking is the same as semiGapped so the two agree exactly when
// the X-drop does not cut anything off.
func (e *Engine) anchored(a, b view, tb bool) (extension, error) {
	sb := e.sb
	nrow, ncol := a.n+1, b.n+1
	if nrow*ncol > maxFullCells {
		return extension{}, fmt.Errorf("full matrix of %d x %d: %w", nrow, ncol, common.ErrAlloc)
	}
	opn := float32(sb.GapOpen)
	wdn := float32(sb.GapExtend)
	w1 := opn + wdn
	hm := matrix.NewFMatrix2d(nrow, ncol) // best
	pm := matrix.NewFMatrix2d(nrow, ncol) // along P, vertical, uses up query
	qm := matrix.NewFMatrix2d(nrow, ncol) // along Q, horizontal, uses up subject
	h, p, q := hm.Mat, pm.Mat, qm.Mat
	if tb {
		e.tb.reset()
	}

	var best float32
	bi, bj := 0, 0
	for i := 0; i < nrow; i++ {
		if tb {
			e.tb.startRow(0)
		}
		var row []int32
		if i > 0 {
			row = sb.Matrix[a.at(i-1)]
		}
		for j := 0; j < ncol; j++ {
			if i == 0 && j == 0 {
				p[0][0], q[0][0] = bigf, bigf
				if tb {
					e.tb.put(fromSub)
				}
				continue
			}
			var st byte
			pv, qv := bigf, bigf
			if i > 0 {
				pv = p[i-1][j] - wdn
				if o := h[i-1][j] - w1; o >= pv {
					pv = o
					st |= dOpen
				}
			}
			if j > 0 {
				qv = q[i][j-1] - wdn
				if o := h[i][j-1] - w1; o >= qv {
					qv = o
					st |= rOpen
				}
			}
			hv := bigf
			if i > 0 && j > 0 {
				hv = h[i-1][j-1] + float32(row[b.at(j-1)])
			}
			src := fromSub
			if pv > hv {
				hv, src = pv, fromD
			}
			if qv > hv {
				hv, src = qv, fromR
			}
			h[i][j], p[i][j], q[i][j] = hv, pv, qv
			if tb {
				e.tb.put(st | src)
			}
			if hv > best {
				best, bi, bj = hv, i, j
			}
		}
	}
	x := extension{score: int32(best), qlen: bi, slen: bj}
	if tb {
		x.script = e.tb.walk(bi, bj)
	}
	return x, nil
}
