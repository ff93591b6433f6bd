// 4 Sep 2026

package seqblk

import (
	"fmt"
	"sort"

	"github.com/andrew-torda/gapx/pkg/common"
)

// Contexts is a query made of one or more pieces (strands, frames),
// laid end to end with a sentinel before, between and after them:
//
//	S ctx0 S ctx1 S
//
// Offsets everywhere else (seeds, HSPs) are offsets into Codes, so a
// context has to be looked up to find where an extension must stop.
type Contexts struct {
	Codes    []byte
	starts   []int // first residue of each context
	ends     []int // one past the last residue
	sentinel byte
}

// NewContexts concatenates the pieces. An empty piece is allowed and
// just gives a context of length zero.
func NewContexts(sentinel byte, pieces ...[]byte) *Contexts {
	n := 1
	for _, p := range pieces {
		n += len(p) + 1
	}
	c := &Contexts{
		Codes:    make([]byte, 0, n),
		starts:   make([]int, len(pieces)),
		ends:     make([]int, len(pieces)),
		sentinel: sentinel,
	}
	c.Codes = append(c.Codes, sentinel)
	for i, p := range pieces {
		c.starts[i] = len(c.Codes)
		c.Codes = append(c.Codes, p...)
		c.ends[i] = len(c.Codes)
		c.Codes = append(c.Codes, sentinel)
	}
	return c
}

// NaStrands makes the usual two contexts for a nucleotide query,
// plus strand then minus strand.
func NaStrands(codes []byte) *Contexts {
	return NewContexts(NaSentinel, codes, ReverseComplement(codes))
}

// Num is the number of contexts.
func (c *Contexts) Num() int { return len(c.starts) }

// Bounds gives the half open range of context i.
func (c *Contexts) Bounds(i int) (start, end int) {
	return c.starts[i], c.ends[i]
}

// Sentinel is the code that separates contexts.
func (c *Contexts) Sentinel() byte { return c.sentinel }

// MaxLen is the length of the longest context.
func (c *Contexts) MaxLen() int {
	m := 0
	for i := range c.starts {
		if l := c.ends[i] - c.starts[i]; l > m {
			m = l
		}
	}
	return m
}

// Index returns the context holding offset off, or an error if off
// sits on a sentinel or outside the query.
func (c *Contexts) Index(off int) (int, error) {
	i := sort.Search(len(c.ends), func(i int) bool { return c.ends[i] > off })
	if i == len(c.ends) || off < c.starts[i] {
		return -1, fmt.Errorf("offset %d is not inside a query context: %w", off, common.ErrBadArg)
	}
	return i, nil
}
