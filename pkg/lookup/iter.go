// 9 Sep 2026

package lookup

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// Iterator hands out batches of seeds for one subject until it is used
// up. It is the usual way to drive a Scanner:
//
//	it, err := lookup.NewIterator(sc, sub, 4096)
//	for it.Next() {
//		use(it.Seeds())
//	}
//	if err := it.Err(); err != nil {
//
// Seeds from one batch are overwritten by the next.
type Iterator struct {
	sc  Scanner
	sub *seqblk.Block
	buf []Seed
	r   Range
	n   int
	err error
}

// NewIterator scans the whole subject. capacity is the batch size and
// is raised to the longest chain if it is too small.
func NewIterator(sc Scanner, sub *seqblk.Block, capacity int) (*Iterator, error) {
	if sc == nil || sub == nil || capacity < 1 {
		return nil, fmt.Errorf("iterator capacity %d: %w", capacity, common.ErrBadArg)
	}
	if lc := sc.LongestChain(); capacity < lc {
		capacity = lc
	}
	return &Iterator{sc: sc, sub: sub, buf: make([]Seed, capacity), r: Range{0, sub.Len}}, nil
}

// Next fetches the next batch. It returns false when the subject is
// finished or on error.
func (it *Iterator) Next() bool {
	if it.err != nil || it.r.Done(it.sc.Span()) {
		return false
	}
	it.n, it.err = it.sc.Scan(it.sub, it.buf, &it.r)
	return it.err == nil && it.n > 0
}

// Seeds is the current batch.
func (it *Iterator) Seeds() []Seed { return it.buf[:it.n] }

func (it *Iterator) Err() error { return it.err }

// Cursor is where the next batch will start.
func (it *Iterator) Cursor() Range { return it.r }

// All collects every seed for a subject. Handy for tests and small
// subjects.
func All(sc Scanner, sub *seqblk.Block) ([]Seed, error) {
	it, err := NewIterator(sc, sub, 1024)
	if err != nil {
		return nil, err
	}
	var seeds []Seed
	for it.Next() {
		seeds = append(seeds, it.Seeds()...)
	}
	return seeds, it.Err()
}
