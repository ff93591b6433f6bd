// 9 Sep 2026

package lookup

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// Range is the stretch of subject still to be scanned, [Start, Stop).
// Start is moved along by every call to Scan. Words have to fit
// completely inside the range.
type Range struct {
	Start, Stop int
}

// Done says there is no whole word of length span left in the range.
func (r Range) Done(span int) bool { return r.Start > r.Stop-span }

// Kind picks a scan strategy.
type Kind byte

const (
	ScanContig Kind = iota // every position, rolling word
	ScanStride             // every stride'th position
	ScanSmall              // every position, small table
	ScanDisc               // every position, discontiguous template
)

func (k Kind) String() string {
	switch k {
	case ScanContig:
		return "contiguous"
	case ScanStride:
		return "stride"
	case ScanSmall:
		return "small"
	case ScanDisc:
		return "discontiguous"
	}
	return "unknown"
}

// Scanner fills a buffer with word hits against a packed subject.
//
// Scan writes seeds into pairs and returns how many. It stops when the
// range is used up, or when the chain for the next word will not fit in
// what is left of pairs. In that case r.Start is left on that word so
// the next call picks it up. A pairs of length zero gives zero and does
// not move the cursor. Asking for fewer than LongestChain (but more
// than zero) is an error, since that could never finish.
type Scanner interface {
	Scan(sub *seqblk.Block, pairs []Seed, r *Range) (int, error)
	Span() int
	LongestChain() int
	Kind() Kind
}

// Options for NewScanner. Stride is only used by ScanStride and is
// normally full word length - lookup word length + 1.
type Options struct {
	Stride int
}

// NewScanner checks the table suits the strategy.
func NewScanner(kind Kind, t Table, opts Options) (Scanner, error) {
	bad := func() (Scanner, error) {
		return nil, fmt.Errorf("%s scanner with table %T: %w", kind, t, common.ErrBadArg)
	}
	switch kind {
	case ScanContig:
		if nt, ok := t.(*NaTable); ok {
			return &contigScanner{t: nt}, nil
		}
	case ScanStride:
		nt, ok := t.(*NaTable)
		if !ok || opts.Stride < 1 {
			return bad()
		}
		return &strideScanner{t: nt, stride: opts.Stride}, nil
	case ScanSmall:
		if st, ok := t.(*SmallNaTable); ok {
			return &smallScanner{t: st}, nil
		}
	case ScanDisc:
		if dt, ok := t.(*DiscTable); ok {
			return newDiscScanner(dt), nil
		}
	}
	return bad()
}

// check is the argument checking common to all scanners. It returns
// the last position a word may start at.
func check(sub *seqblk.Block, npairs int, r *Range, span, longest int) (int, error) {
	switch {
	case sub == nil || r == nil:
		return 0, fmt.Errorf("nil subject or range: %w", common.ErrBadArg)
	case sub.Enc != seqblk.NcbiNa2:
		return 0, fmt.Errorf("subject encoding %s, want %s: %w", sub.Enc, seqblk.NcbiNa2, common.ErrBadArg)
	case r.Start < 0 || r.Stop > sub.Len || r.Start > r.Stop:
		return 0, fmt.Errorf("range [%d,%d) on subject of %d: %w", r.Start, r.Stop, sub.Len, common.ErrBadArg)
	case npairs > 0 && npairs < longest:
		return 0, fmt.Errorf("room for %d seeds, longest chain %d: %w", npairs, longest, common.ErrBadArg)
	}
	return r.Stop - span, nil
}

// window reads n <= 28 packed bases from pos as a 2n bit number, first
// base in the high bits.
func window(data []byte, pos, n int) uint64 {
	b := pos >> 2
	shift := 2 * uint(pos&3)
	nbytes := (int(shift) + 2*n + 7) >> 3
	var v uint64
	for i := 0; i < nbytes; i++ {
		v = v<<8 | uint64(data[b+i])
	}
	v >>= uint(nbytes*8) - shift - 2*uint(n)
	return v & (1<<(2*uint(n)) - 1)
}

// packedBase is base i of a packed sequence.
func packedBase(data []byte, i int) uint64 {
	return uint64(data[i>>2]>>(6-2*uint(i&3))) & 3
}

// emit copies a chain into pairs if it fits.
func emit(pairs []Seed, n int, chain []int32, soff int) (int, bool) {
	if len(chain) > len(pairs)-n {
		return n, false
	}
	for _, q := range chain {
		pairs[n] = Seed{QOff: q, SOff: int32(soff)}
		n++
	}
	return n, true
}

type contigScanner struct{ t *NaTable }

func (s *contigScanner) Span() int         { return s.t.W }
func (s *contigScanner) LongestChain() int { return s.t.LongestChain() }
func (s *contigScanner) Kind() Kind        { return ScanContig }

func (s *contigScanner) Scan(sub *seqblk.Block, pairs []Seed, r *Range) (int, error) {
	last, err := check(sub, len(pairs), r, s.t.W, s.t.LongestChain())
	if err != nil || len(pairs) == 0 || r.Start > last {
		return 0, err
	}
	w := s.t.W
	mask := uint64(1)<<(2*uint(w)) - 1
	pos, n := r.Start, 0
	word := window(sub.Data, pos, w)
	for {
		if wd := uint32(word); s.t.pv.test(wd) {
			var ok bool
			if n, ok = emit(pairs, n, s.t.c.chain(wd), pos); !ok {
				break
			}
		}
		if pos++; pos > last {
			break
		}
		word = (word<<2 | packedBase(sub.Data, pos+w-1)) & mask
	}
	r.Start = pos
	return n, nil
}

type strideScanner struct {
	t      *NaTable
	stride int
}

func (s *strideScanner) Span() int         { return s.t.W }
func (s *strideScanner) LongestChain() int { return s.t.LongestChain() }
func (s *strideScanner) Kind() Kind        { return ScanStride }

// Scan reads every stride'th word from r.Start. A match of at least
// W + stride - 1 bases always contains one of them. A stride that
// jumps past the end leaves r.Start on r.Stop, never beyond it.
func (s *strideScanner) Scan(sub *seqblk.Block, pairs []Seed, r *Range) (int, error) {
	last, err := check(sub, len(pairs), r, s.t.W, s.t.LongestChain())
	if err != nil || len(pairs) == 0 || r.Start > last {
		return 0, err
	}
	pos, n := r.Start, 0
	for ; pos <= last; pos += s.stride {
		wd := uint32(window(sub.Data, pos, s.t.W))
		if !s.t.pv.test(wd) {
			continue
		}
		var ok bool
		if n, ok = emit(pairs, n, s.t.c.chain(wd), pos); !ok {
			break
		}
	}
	r.Start = min(pos, r.Stop)
	return n, nil
}

type smallScanner struct{ t *SmallNaTable }

func (s *smallScanner) Span() int         { return s.t.W }
func (s *smallScanner) LongestChain() int { return s.t.longest }
func (s *smallScanner) Kind() Kind        { return ScanSmall }

// chainLen is the number of query offsets behind a backbone cell.
func (t *SmallNaTable) chainLen(v int16) int {
	switch {
	case v == smallEmpty:
		return 0
	case v >= 0:
		return 1
	}
	n := 0
	for i := int(smallChainStart - v); t.overflow[i] != smallEmpty; i++ {
		n++
	}
	return n
}

func (s *smallScanner) Scan(sub *seqblk.Block, pairs []Seed, r *Range) (int, error) {
	t := s.t
	last, err := check(sub, len(pairs), r, t.W, t.longest)
	if err != nil || len(pairs) == 0 || r.Start > last {
		return 0, err
	}
	mask := uint64(1)<<(2*uint(t.W)) - 1
	pos, n := r.Start, 0
	word := window(sub.Data, pos, t.W)
	for {
		if v := t.backbone[word]; v != smallEmpty {
			if t.chainLen(v) > len(pairs)-n {
				break
			}
			if v >= 0 {
				pairs[n] = Seed{QOff: int32(v), SOff: int32(pos)}
				n++
			} else {
				for i := int(smallChainStart - v); t.overflow[i] != smallEmpty; i++ {
					pairs[n] = Seed{QOff: int32(t.overflow[i]), SOff: int32(pos)}
					n++
				}
			}
		}
		if pos++; pos > last {
			break
		}
		word = (word<<2 | packedBase(sub.Data, pos+t.W-1)) & mask
	}
	r.Start = pos
	return n, nil
}

type discScanner struct {
	t     *DiscTable
	shift []uint // where each '1' of the template sits in the window
}

func newDiscScanner(t *DiscTable) *discScanner {
	span := len(t.Tmpl)
	s := &discScanner{t: t, shift: make([]uint, len(t.ones))}
	for i, p := range t.ones {
		s.shift[i] = 2 * uint(span-1-p)
	}
	return s
}

func (s *discScanner) Span() int         { return len(s.t.Tmpl) }
func (s *discScanner) LongestChain() int { return s.t.LongestChain() }
func (s *discScanner) Kind() Kind        { return ScanDisc }

// key pulls the template bases out of a window.
func (s *discScanner) key(win uint64) uint32 {
	var k uint32
	for _, sh := range s.shift {
		k = k<<2 | uint32(win>>sh)&3
	}
	return k
}

func (s *discScanner) Scan(sub *seqblk.Block, pairs []Seed, r *Range) (int, error) {
	span := len(s.t.Tmpl)
	last, err := check(sub, len(pairs), r, span, s.t.LongestChain())
	if err != nil || len(pairs) == 0 || r.Start > last {
		return 0, err
	}
	mask := uint64(1)<<(2*uint(span)) - 1
	pos, n := r.Start, 0
	win := window(sub.Data, pos, span)
	for {
		if k := s.key(win); s.t.pv.test(k) {
			var ok bool
			if n, ok = emit(pairs, n, s.t.c.chain(k), pos); !ok {
				break
			}
		}
		if pos++; pos > last {
			break
		}
		win = (win<<2 | packedBase(sub.Data, pos+span-1)) & mask
	}
	r.Start = pos
	return n, nil
}
