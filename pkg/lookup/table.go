// 8 Sep 2026

// Package lookup finds word hits between a query and a packed
// nucleotide subject. A table is built once from the query and never
// changes, so any number of goroutines can scan with it. Where a scan
// has got to is kept by the caller, in a Range.
package lookup

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// Seed is a word hit. Both offsets are to the first base of the word.
// QOff is an offset into the concatenated query contexts.
type Seed struct {
	QOff, SOff int32
}

// Table is what every lookup table can say about itself.
type Table interface {
	Span() int         // bases covered by one word
	LongestChain() int // most query offsets for a single word
	NumHits() int      // query words stored
}

const (
	maxWordLen      = 12 // 4^12 cells is as big as we go
	maxSmallQuery   = 1<<15 - 1
	smallEmpty      = -1
	smallChainStart = -2 // backbone values <= this point into overflow
)

// presence is a bit per possible word. It lets the scanner throw
// away most subject words without touching the bigger arrays.
type presence []uint64

func newPresence(nword int) presence {
	return make(presence, (nword+63)>>6)
}

func (pv presence) set(w uint32)       { pv[w>>6] |= 1 << (w & 63) }
func (pv presence) test(w uint32) bool { return pv[w>>6]&(1<<(w&63)) != 0 }

// wordsOf walks the query and calls f for every position with a clean
// word under the given template. Words touching N or a context
// separator are skipped. tmpl gives the position of each base of the
// word relative to its start.
func wordsOf(codes []byte, span int, tmpl []int, f func(word uint32, qoff int)) {
	for i := 0; i+span <= len(codes); i++ {
		var w uint32
		clean := true
		for _, p := range tmpl {
			c := codes[i+p]
			if c > seqblk.NaT {
				clean = false
				break
			}
			w = w<<2 | uint32(c)
		}
		if clean {
			f(w, i)
		}
	}
}

// contigTemplate is 0, 1, ... n-1.
func contigTemplate(n int) []int {
	t := make([]int, n)
	for i := range t {
		t[i] = i
	}
	return t
}

// csr is a backbone in compressed row form. The query offsets for
// word w are offs[start[w]:start[w+1]].
type csr struct {
	start   []int32
	offs    []int32
	longest int
}

// buildCSR counts, then fills. Chains come out in query order.
func buildCSR(codes []byte, span int, tmpl []int, nword int) (csr, presence) {
	c := csr{start: make([]int32, nword+1)}
	pv := newPresence(nword)
	wordsOf(codes, span, tmpl, func(w uint32, _ int) {
		c.start[w+1]++
	})
	for w := 0; w < nword; w++ {
		if n := int(c.start[w+1]); n > c.longest {
			c.longest = n
		}
		if c.start[w+1] > 0 {
			pv.set(uint32(w))
		}
		c.start[w+1] += c.start[w]
	}
	c.offs = make([]int32, c.start[nword])
	fill := make([]int32, nword)
	copy(fill, c.start[:nword])
	wordsOf(codes, span, tmpl, func(w uint32, q int) {
		c.offs[fill[w]] = int32(q)
		fill[w]++
	})
	return c, pv
}

func (c *csr) chain(w uint32) []int32 { return c.offs[c.start[w]:c.start[w+1]] }

// NaTable is the standard table, one cell for every possible word of
// length W.
type NaTable struct {
	W  int
	c  csr
	pv presence
}

// NewNaTable builds the standard table for word length w.
func NewNaTable(q *seqblk.Contexts, w int) (*NaTable, error) {
	if q == nil || w < 1 || w > maxWordLen {
		return nil, fmt.Errorf("lookup word length %d (max %d): %w", w, maxWordLen, common.ErrBadArg)
	}
	c, pv := buildCSR(q.Codes, w, contigTemplate(w), 1<<(2*w))
	return &NaTable{W: w, c: c, pv: pv}, nil
}

func (t *NaTable) Span() int         { return t.W }
func (t *NaTable) LongestChain() int { return t.c.longest }
func (t *NaTable) NumHits() int      { return len(t.c.offs) }

// Hits returns the query offsets for a word. Do not change them.
func (t *NaTable) Hits(w uint32) []int32 { return t.c.chain(w) }

// SmallNaTable is for short queries. Each cell is an int16. A cell
// with one hit holds the query offset itself, a cell with several
// points into an overflow array where the chain ends with -1.
type SmallNaTable struct {
	W        int
	backbone []int16
	overflow []int16
	longest  int
	nhits    int
}

// NewSmallNaTable builds the compact table. The whole query, with its
// separators, has to be shorter than 32767.
func NewSmallNaTable(q *seqblk.Contexts, w int) (*SmallNaTable, error) {
	if q == nil || w < 1 || w > maxWordLen {
		return nil, fmt.Errorf("small lookup word length %d: %w", w, common.ErrBadArg)
	}
	if len(q.Codes) > maxSmallQuery {
		return nil, fmt.Errorf("query of %d is too long for a small table: %w", len(q.Codes), common.ErrBadArg)
	}
	nword := 1 << (2 * w)
	c, _ := buildCSR(q.Codes, w, contigTemplate(w), nword)
	t := &SmallNaTable{W: w, backbone: make([]int16, nword), longest: c.longest, nhits: len(c.offs)}
	for wd := 0; wd < nword; wd++ {
		ch := c.chain(uint32(wd))
		switch len(ch) {
		case 0:
			t.backbone[wd] = smallEmpty
		case 1:
			t.backbone[wd] = int16(ch[0])
		default:
			idx := len(t.overflow)
			if idx > maxSmallQuery+smallChainStart {
				return nil, fmt.Errorf("small table overflow full: %w", common.ErrBadArg)
			}
			t.backbone[wd] = int16(smallChainStart - idx)
			for _, q := range ch {
				t.overflow = append(t.overflow, int16(q))
			}
			t.overflow = append(t.overflow, smallEmpty)
		}
	}
	return t, nil
}

func (t *SmallNaTable) Span() int         { return t.W }
func (t *SmallNaTable) LongestChain() int { return t.longest }
func (t *SmallNaTable) NumHits() int      { return t.nhits }

// Template is a discontiguous word pattern. A '1' is a base that has
// to match.
type Template string

const (
	Coding11of16  Template = "1101101101101101"
	Optimal11of16 Template = "1110010110110111"
	Coding12of16  Template = "1101101101101111"
	Optimal12of16 Template = "1110110110110111"
)

// DiscTable is indexed by the bases under the 1s of a template.
type DiscTable struct {
	Tmpl   Template
	ones   []int
	weight int
	c      csr
	pv     presence
}

// NewDiscTable builds a discontiguous table.
func NewDiscTable(q *seqblk.Contexts, tmpl Template) (*DiscTable, error) {
	var ones []int
	for i, c := range tmpl {
		switch c {
		case '1':
			ones = append(ones, i)
		case '0':
		default:
			return nil, fmt.Errorf("template %q: %w", tmpl, common.ErrBadArg)
		}
	}
	if q == nil || len(ones) == 0 || len(ones) > maxWordLen || len(tmpl) > 16 || tmpl[0] != '1' {
		return nil, fmt.Errorf("template %q: %w", tmpl, common.ErrBadArg)
	}
	nword := 1 << (2 * len(ones))
	c, pv := buildCSR(q.Codes, len(tmpl), ones, nword)
	return &DiscTable{Tmpl: tmpl, ones: ones, weight: len(ones), c: c, pv: pv}, nil
}

func (t *DiscTable) Span() int         { return len(t.Tmpl) }
func (t *DiscTable) LongestChain() int { return t.c.longest }
func (t *DiscTable) NumHits() int      { return len(t.c.offs) }
func (t *DiscTable) Weight() int       { return t.weight }
