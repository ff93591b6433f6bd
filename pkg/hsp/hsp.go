// 11 Sep 2026

// Package hsp has the results of extension. A Candidate is filled in
// and changed while an extension is being scored. When it is appended
// to a List it is frozen into an HSP, which cannot be changed.
package hsp

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Op is one kind of alignment column.
type Op byte

const (
	OpSub        Op = iota // match or mismatch
	OpGapQuery             // gap in the query, uses up subject
	OpGapSubject           // gap in the subject, uses up query
)

func (op Op) String() string { return string(op.cigar()) }

func (op Op) cigar() byte {
	switch op {
	case OpGapQuery:
		return 'D'
	case OpGapSubject:
		return 'I'
	}
	return 'M'
}

// Run is a stretch of columns of the same kind.
type Run struct {
	Op Op
	N  int32
}

// EditScript is a run length encoded alignment path, from the start
// of the alignment to its end.
type EditScript []Run

// Add appends n columns of op, merging with the last run if it is the
// same kind.
func (e *EditScript) Add(op Op, n int32) {
	if n <= 0 {
		return
	}
	if l := len(*e); l > 0 && (*e)[l-1].Op == op {
		(*e)[l-1].N += n
		return
	}
	*e = append(*e, Run{op, n})
}

// Join adds all of f to the end of e.
func (e *EditScript) Join(f EditScript) {
	for _, r := range f {
		e.Add(r.Op, r.N)
	}
}

// Reverse flips the order of the runs in place.
func (e EditScript) Reverse() {
	for i, j := 0, len(e)-1; i < j; i, j = i+1, j-1 {
		e[i], e[j] = e[j], e[i]
	}
}

// CIGAR writes the script with the query as read and the subject as
// reference.
func (e EditScript) CIGAR() string {
	var sb strings.Builder
	for _, r := range e {
		sb.WriteString(strconv.Itoa(int(r.N)))
		sb.WriteByte(r.Op.cigar())
	}
	return sb.String()
}

// QueryLen is how many query residues the script uses.
func (e EditScript) QueryLen() int {
	n := 0
	for _, r := range e {
		if r.Op != OpGapQuery {
			n += int(r.N)
		}
	}
	return n
}

// SubjectLen is how many subject residues the script uses.
func (e EditScript) SubjectLen() int {
	n := 0
	for _, r := range e {
		if r.Op != OpGapSubject {
			n += int(r.N)
		}
	}
	return n
}

// Stats counts the columns of an alignment.
type Stats struct {
	Identities int
	Mismatches int
	GapColumns int
	GapOpens   int
}

// Length is the number of alignment columns.
func (st Stats) Length() int { return st.Identities + st.Mismatches + st.GapColumns }

// Identity is the fraction of columns that are identical.
func (st Stats) Identity() float64 {
	if st.Length() == 0 {
		return 0
	}
	return float64(st.Identities) / float64(st.Length())
}

// Stats walks the script over q and s, which start where the
// alignment starts.
func (e EditScript) Stats(q, s []byte) (Stats, error) {
	var st Stats
	if len(q) < e.QueryLen() || len(s) < e.SubjectLen() {
		return st, fmt.Errorf("script %s is longer than the sequences (%d, %d)", e.CIGAR(), len(q), len(s))
	}
	i, j := 0, 0
	for _, r := range e {
		n := int(r.N)
		switch r.Op {
		case OpSub:
			for k := 0; k < n; k++ {
				if q[i+k] == s[j+k] {
					st.Identities++
				} else {
					st.Mismatches++
				}
			}
			i += n
			j += n
		case OpGapQuery:
			st.GapColumns += n
			st.GapOpens++
			j += n
		case OpGapSubject:
			st.GapColumns += n
			st.GapOpens++
			i += n
		}
	}
	return st, nil
}

// Region is a rectangle of the alignment matrix. Ends are exclusive.
type Region struct {
	QStart, QEnd, SStart, SEnd int
}

// Contains is true if o lies completely inside r.
func (r Region) Contains(o Region) bool {
	return r.QStart <= o.QStart && o.QEnd <= r.QEnd &&
		r.SStart <= o.SStart && o.SEnd <= r.SEnd
}

// Candidate is an alignment still being worked on.
type Candidate struct {
	Region
	Score          int32
	Left, Right    int32 // best scores of each extension
	SeedScore      int32 // score of the start pair itself
	QSeed, SSeed   int   // start pair of the gapped extension
	Context        int   // query context the alignment is in
	Script         EditScript
	Ident          float64
	HasIdent       bool
	UngappedScore  int32 // score of the ungapped pass, if there was one
	UngappedRegion Region
}

// Check makes sure the score adds up and the script fits the region.
func (c *Candidate) Check() error {
	if c.Left+c.Right+c.SeedScore != c.Score {
		return fmt.Errorf("score %d is not %d + %d + %d", c.Score, c.Left, c.Right, c.SeedScore)
	}
	if c.QEnd < c.QStart || c.SEnd < c.SStart {
		return fmt.Errorf("backwards region %+v", c.Region)
	}
	if c.Script != nil && (c.Script.QueryLen() != c.QEnd-c.QStart || c.Script.SubjectLen() != c.SEnd-c.SStart) {
		return fmt.Errorf("script %s does not fit region %+v", c.Script.CIGAR(), c.Region)
	}
	return nil
}

// Freeze copies the candidate into an HSP.
func (c *Candidate) Freeze() HSP {
	return HSP{c: Candidate{
		Region:         c.Region,
		Score:          c.Score,
		Left:           c.Left,
		Right:          c.Right,
		SeedScore:      c.SeedScore,
		QSeed:          c.QSeed,
		SSeed:          c.SSeed,
		Context:        c.Context,
		Script:         slices.Clone(c.Script),
		Ident:          c.Ident,
		HasIdent:       c.HasIdent,
		UngappedScore:  c.UngappedScore,
		UngappedRegion: c.UngappedRegion,
	}}
}

// HSP is a finished alignment. It can only be read.
type HSP struct {
	c Candidate
}

func (h HSP) Region() Region    { return h.c.Region }
func (h HSP) QueryStart() int   { return h.c.QStart }
func (h HSP) QueryEnd() int     { return h.c.QEnd }
func (h HSP) SubjectStart() int { return h.c.SStart }
func (h HSP) SubjectEnd() int   { return h.c.SEnd }
func (h HSP) Score() int32      { return h.c.Score }
func (h HSP) Context() int      { return h.c.Context }

// Parts are the left extension, right extension and start pair scores.
// They add up to Score.
func (h HSP) Parts() (left, right, seed int32) { return h.c.Left, h.c.Right, h.c.SeedScore }

// SeedPoint is where the gapped extension started.
func (h HSP) SeedPoint() (q, s int) { return h.c.QSeed, h.c.SSeed }

// HasScript says if there is a traceback.
func (h HSP) HasScript() bool { return h.c.Script != nil }

// Script returns a copy of the edit script, nil if there was no
// traceback.
func (h HSP) Script() EditScript { return slices.Clone(h.c.Script) }

// Identity is the percent identity from the greedy non-affine pass.
// ok is false for anything else.
func (h HSP) Identity() (f float64, ok bool) { return h.c.Ident, h.c.HasIdent }

// Candidate gives a mutable copy, for refining an HSP in a later pass.
func (h HSP) Candidate() Candidate {
	c := h.c
	c.Script = slices.Clone(h.c.Script)
	return c
}

func (h HSP) String() string {
	s := fmt.Sprintf("q %d-%d s %d-%d score %d", h.c.QStart, h.c.QEnd, h.c.SStart, h.c.SEnd, h.c.Score)
	if h.c.Script != nil {
		s += " " + h.c.Script.CIGAR()
	}
	return s
}
