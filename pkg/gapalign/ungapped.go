// 14 Sep 2026

package gapalign

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/hsp"
	"github.com/andrew-torda/gapx/pkg/score"
)

// Ungapped extends the word of length wlen at (qoff, soff) along its
// diagonal in both directions until the score falls more than xdrop
// below the best. The word itself is always in the region. q and s
// are unpacked codes. A sentinel in q stops things as well as any
// X-drop would.
func Ungapped(q, s []byte, qoff, soff, wlen int, sb *score.Block, xdrop int32) (hsp.Region, int32, error) {
	if qoff < 0 || soff < 0 || wlen < 1 || qoff+wlen > len(q) || soff+wlen > len(s) {
		return hsp.Region{}, 0, fmt.Errorf("word of %d at %d/%d in %d/%d: %w",
			wlen, qoff, soff, len(q), len(s), common.ErrBadArg)
	}
	var word int32
	for k := 0; k < wlen; k++ {
		word += sb.Matrix[q[qoff+k]][s[soff+k]]
	}

	var sum, left int32
	nleft := 0
	for k := 1; qoff-k >= 0 && soff-k >= 0; k++ {
		sum += sb.Matrix[q[qoff-k]][s[soff-k]]
		if sum > left {
			left, nleft = sum, k
		} else if sum < left-xdrop {
			break
		}
	}

	sum = 0
	var right int32
	nright := 0
	for k := 0; qoff+wlen+k < len(q) && soff+wlen+k < len(s); k++ {
		sum += sb.Matrix[q[qoff+wlen+k]][s[soff+wlen+k]]
		if sum > right {
			right, nright = sum, k+1
		} else if sum < right-xdrop {
			break
		}
	}
	r := hsp.Region{
		QStart: qoff - nleft, QEnd: qoff + wlen + nright,
		SStart: soff - nleft, SEnd: soff + wlen + nright,
	}
	return r, word + left + right, nil
}
