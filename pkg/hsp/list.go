// 11 Sep 2026

package hsp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/andrew-torda/gapx/pkg/common"
	psort "github.com/exascience/pargo/sort"
	"github.com/zeebo/wyhash"
)

// ErrCapacity is returned by Append when the list is full and may not
// grow. Nothing in the list has been touched.
var ErrCapacity = errors.New("hsp list full")

// parSortMin is the length below which sorting is not worth spreading
// over goroutines.
const parSortMin = 4096

// List holds the HSPs for one subject. It belongs to one goroutine.
type List struct {
	hsps          []HSP
	maxHSPs       int // 0 means no cap
	noRealloc     bool
	tracebackDone bool
	seen          map[uint64][]ident
	Subject       int // index of the subject in the caller's set
}

// NewList makes room for capacity HSPs. If noRealloc is set, the
// list never grows past that. maxHSPs caps the list in any case.
func NewList(capacity, maxHSPs int, noRealloc bool) (*List, error) {
	if capacity < 0 || maxHSPs < 0 || (noRealloc && capacity == 0) {
		return nil, fmt.Errorf("hsp list capacity %d max %d: %w", capacity, maxHSPs, common.ErrBadArg)
	}
	if maxHSPs > 0 && capacity > maxHSPs {
		capacity = maxHSPs
	}
	return &List{
		hsps:      make([]HSP, 0, capacity),
		maxHSPs:   maxHSPs,
		noRealloc: noRealloc,
		seen:      make(map[uint64][]ident),
	}, nil
}

// Append freezes c and stores it. The list doubles when it is full,
// unless it was made with noRealloc or has reached its cap, in which
// case ErrCapacity comes back. The caller may then sort and truncate
// and try again.
func (l *List) Append(c *Candidate) error {
	if len(l.hsps) == cap(l.hsps) {
		if l.noRealloc || (l.maxHSPs > 0 && len(l.hsps) >= l.maxHSPs) {
			return ErrCapacity
		}
		n := 2 * cap(l.hsps)
		if n == 0 {
			n = 4
		}
		if l.maxHSPs > 0 && n > l.maxHSPs {
			n = l.maxHSPs
		}
		tmp := make([]HSP, len(l.hsps), n)
		copy(tmp, l.hsps)
		l.hsps = tmp
	}
	l.hsps = append(l.hsps, c.Freeze())
	l.remember(c)
	return nil
}

// ident is what makes two alignments the same.
type ident struct {
	Region
	Context int
}

func identOf(c *Candidate) ident { return ident{c.Region, c.Context} }

// hashIdent hashes the coordinates as fixed width little endian words.
// Two idents can share a hash, so the set keeps the idents themselves.
func hashIdent(id ident) uint64 {
	var buf [40]byte
	for i, v := range [5]int{id.QStart, id.QEnd, id.SStart, id.SEnd, id.Context} {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(v))
	}
	return wyhash.Hash(buf[:], 0)
}

func (l *List) remember(c *Candidate) {
	id := identOf(c)
	h := hashIdent(id)
	if !slices.Contains(l.seen[h], id) {
		l.seen[h] = append(l.seen[h], id)
	}
}

// Seen says an HSP with exactly these coordinates is already here.
func (l *List) Seen(c *Candidate) bool {
	id := identOf(c)
	return slices.Contains(l.seen[hashIdent(id)], id)
}

// Covers says some HSP in the list contains r and scores at least
// score, so an extension inside r cannot give anything new.
func (l *List) Covers(r Region, score int32) bool {
	for i := range l.hsps {
		if h := &l.hsps[i]; h.c.Score >= score && h.c.Region.Contains(r) {
			return true
		}
	}
	return false
}

// Len is the number of HSPs.
func (l *List) Len() int { return len(l.hsps) }

// NoRealloc says the list was made never to grow.
func (l *List) NoRealloc() bool { return l.noRealloc }

// Cap is how many fit before the next growth.
func (l *List) Cap() int { return cap(l.hsps) }

// At is HSP i.
func (l *List) At(i int) HSP { return l.hsps[i] }

// HSPs is a copy of the contents.
func (l *List) HSPs() []HSP { return append([]HSP(nil), l.hsps...) }

// Best is the top score, 0 for an empty list.
func (l *List) Best() int32 {
	var b int32
	for i := range l.hsps {
		if s := l.hsps[i].c.Score; s > b {
			b = s
		}
	}
	return b
}

// byScore sorts HSPs, best first. Equal scores keep their order.
type byScore []HSP

func less(a, b *HSP) bool {
	if a.c.Score != b.c.Score {
		return a.c.Score > b.c.Score
	}
	if a.c.SStart != b.c.SStart {
		return a.c.SStart < b.c.SStart
	}
	return a.c.QStart < b.c.QStart
}

// SequentialSort implements the method of the SequentialSorter interface.
func (s byScore) SequentialSort(i, j int) {
	h := s[i:j]
	sort.SliceStable(h, func(i, j int) bool { return less(&h[i], &h[j]) })
}

// NewTemp implements the method of the StableSorter interface.
func (s byScore) NewTemp() psort.StableSorter { return make(byScore, len(s)) }

func (s byScore) Len() int           { return len(s) }
func (s byScore) Less(i, j int) bool { return less(&s[i], &s[j]) }

// Assign implements the method of the StableSorter interface.
func (s byScore) Assign(p psort.StableSorter) func(i, j, len int) {
	dst, src := s, p.(byScore)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// SortByScore puts the best HSPs first. Long lists are sorted in
// parallel.
func (l *List) SortByScore() {
	if len(l.hsps) < parSortMin {
		byScore(l.hsps).SequentialSort(0, len(l.hsps))
		return
	}
	psort.StableSort(byScore(l.hsps))
}

// Truncate keeps the first n HSPs. Sort first to keep the best.
func (l *List) Truncate(n int) {
	if n < 0 || n >= len(l.hsps) {
		return
	}
	clear(l.hsps[n:])
	l.hsps = l.hsps[:n]
	clear(l.seen)
	for i := range l.hsps {
		l.remember(&l.hsps[i].c)
	}
}

// MarkTracebackDone records that every HSP has its edit script. It
// cannot be undone.
func (l *List) MarkTracebackDone() { l.tracebackDone = true }

func (l *List) TracebackDone() bool { return l.tracebackDone }
