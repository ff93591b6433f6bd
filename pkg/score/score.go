// 5 Sep 2026

// Package score holds the scoring block: substitution scores, gap
// costs and the X-drop values. It is built once per search and is
// only read after that, so any number of workers can share one.
//
// Gap costs follow the BLAST convention. A gap of length L costs
// GapOpen + L*GapExtend, so the first gapped residue costs
// GapOpen+GapExtend. Both are given as positive numbers.
package score

import (
	"fmt"
	"math"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// SentinelScore is what anything scores against a context separator.
// It is low enough to stop any extension dead, but far enough from
// the int32 limits that adding a few of them cannot wrap.
const SentinelScore int32 = -(1 << 20)

// Block is the scoring block.
type Block struct {
	Matrix        [][]int32 // Matrix[a][b], one flat backing slice
	GapOpen       int32
	GapExtend     int32
	XDropUngapped int32 // raw score units
	XDropGapped   int32 // preliminary gapped extension
	XDropFinal    int32 // traceback
	Reward        int32 // nucleotide match, 0 for proteins
	Penalty       int32 // nucleotide mismatch, negative
	Protein       bool
	MatrixName    string
}

// newTable makes an n x n table whose rows all live in one slice.
func newTable(n int) [][]int32 {
	backing := make([]int32, n*n)
	t := make([][]int32, n)
	for i := range t {
		t[i] = backing[i*n : (i+1)*n : (i+1)*n]
	}
	return t
}

// NewNa gives an identity scoring block for nucleotides. penalty is
// the (negative) mismatch score. N scores penalty against anything.
func NewNa(reward, penalty, open, extend int32) (*Block, error) {
	b := &Block{
		Matrix:        newTable(seqblk.NaAlphabet),
		GapOpen:       open,
		GapExtend:     extend,
		XDropUngapped: 20,
		XDropGapped:   30,
		XDropFinal:    100,
		Reward:        reward,
		Penalty:       penalty,
		MatrixName:    fmt.Sprintf("identity %d/%d", reward, penalty),
	}
	if reward <= 0 || penalty >= 0 {
		return nil, fmt.Errorf("reward %d, penalty %d: reward must be > 0 and penalty < 0: %w",
			reward, penalty, common.ErrBadArg)
	}
	for i, row := range b.Matrix {
		for j := range row {
			switch {
			case byte(i) == seqblk.NaSentinel || byte(j) == seqblk.NaSentinel:
				row[j] = SentinelScore
			case i == j && i <= int(seqblk.NaT):
				row[j] = reward
			default:
				row[j] = penalty
			}
		}
	}
	return b, b.Validate()
}

// NewProtein converts a substitution matrix to ncbistdaa order.
// Letters the text matrix does not know about (U, O, J) are scored
// like X. The gap code is the context sentinel.
func NewProtein(sm *Submat, open, extend int32) (*Block, error) {
	b := &Block{
		Matrix:        newTable(seqblk.AaAlphabet),
		GapOpen:       open,
		GapExtend:     extend,
		XDropUngapped: 16,
		XDropGapped:   38,
		XDropFinal:    64,
		Protein:       true,
		MatrixName:    sm.Name(),
	}
	letters := []byte(seqblk.Decode(allAa(), true))
	alias := func(c byte) byte {
		if _, ok := sm.Score(c, c); ok {
			return c
		}
		return 'X'
	}
	for i, ci := range letters {
		for j, cj := range letters {
			if i == int(seqblk.AaSentinel) || j == int(seqblk.AaSentinel) {
				b.Matrix[i][j] = SentinelScore
				continue
			}
			f, ok := sm.Score(alias(ci), alias(cj))
			if !ok {
				return nil, fmt.Errorf("matrix %s has no X row: %w", sm.Name(), common.ErrBadArg)
			}
			b.Matrix[i][j] = int32(math.Round(float64(f)))
		}
	}
	return b, b.Validate()
}

// allAa is every ncbistdaa code in order.
func allAa() []byte {
	c := make([]byte, seqblk.AaAlphabet)
	for i := range c {
		c[i] = byte(i)
	}
	return c
}

// Validate checks for parameters that would make the aligners loop
// forever or make no sense.
func (b *Block) Validate() error {
	const pfx = "scoring block"
	switch {
	case len(b.Matrix) == 0:
		return fmt.Errorf("%s: empty matrix: %w", pfx, common.ErrBadArg)
	case b.GapOpen < 0 || b.GapExtend < 0:
		return fmt.Errorf("%s: negative gap cost %d/%d: %w", pfx, b.GapOpen, b.GapExtend, common.ErrBadArg)
	case b.GapOpen+b.GapExtend == 0 && b.Protein:
		return fmt.Errorf("%s: protein alignment needs gap costs: %w", pfx, common.ErrBadArg)
	case b.XDropUngapped <= 0 || b.XDropGapped <= 0 || b.XDropFinal <= 0:
		return fmt.Errorf("%s: X-drop values must be positive: %w", pfx, common.ErrBadArg)
	}
	for _, row := range b.Matrix {
		if len(row) != len(b.Matrix) {
			return fmt.Errorf("%s: matrix not square: %w", pfx, common.ErrBadArg)
		}
	}
	return nil
}

// Score is the substitution score of two codes.
func (b *Block) Score(x, y byte) int32 { return b.Matrix[x][y] }

// WithMatrix returns a copy of the block using m. Nothing mutable is
// shared with the original.
func (b *Block) WithMatrix(m [][]int32) *Block {
	c := *b
	c.Matrix = newTable(len(m))
	for i, row := range m {
		copy(c.Matrix[i], row)
	}
	return &c
}

// Sentinel returns the code separating contexts in this alphabet.
func (b *Block) Sentinel() byte {
	if b.Protein {
		return seqblk.AaSentinel
	}
	return seqblk.NaSentinel
}

// XDropFromBits converts an X-drop in bits to raw score units for a
// given ungapped or gapped lambda.
func XDropFromBits(bits, lambda float64) int32 {
	return int32(math.Ceil(bits * math.Ln2 / lambda))
}

// MinScore is the lowest entry in the matrix, ignoring sentinels.
func (b *Block) MinScore() int32 {
	m := int32(math.MaxInt32)
	for _, row := range b.Matrix {
		for _, v := range row {
			if v != SentinelScore && v < m {
				m = v
			}
		}
	}
	return m
}
