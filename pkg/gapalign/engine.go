// 15 Sep 2026

// Package gapalign turns seeds into gapped alignments. An Engine owns
// all the scratch memory for one worker and is used for one extension
// at a time. Extensions go in both directions from a start pair and
// stop by X-drop. There are three ways to do it: X-drop dynamic
// programming, greedy wavefronts for long, near identical nucleotide
// matches, and a full matrix that is only there to check the others.
//
// Query offsets in the candidates and HSPs coming out of ExtendSeeds
// and TracebackPass are offsets into the concatenated query contexts.
// Extend works on plain slices and gives offsets into them.
package gapalign

import (
	"errors"
	"fmt"
	"slices"

	"github.com/andrew-torda/gapx/pkg/arena"
	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/compo"
	"github.com/andrew-torda/gapx/pkg/hsp"
	"github.com/andrew-torda/gapx/pkg/lookup"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// Method is the way an extension is done.
type Method byte

const (
	DP     Method = iota // X-drop dynamic programming
	Greedy               // wavefronts, nucleotides only
	Full                 // whole matrix, no X-drop, for checking
)

func (m Method) String() string {
	switch m {
	case DP:
		return "dp"
	case Greedy:
		return "greedy"
	case Full:
		return "full"
	}
	return "unknown"
}

// GreedyVariant says what the greedy method gives back.
type GreedyVariant byte

const (
	GreedyScore     GreedyVariant = iota // score and end points
	GreedyIdentity                       // non-affine, also percent identity
	GreedyTraceback                      // edit script as well
)

func (v GreedyVariant) String() string {
	switch v {
	case GreedyScore:
		return "score"
	case GreedyIdentity:
		return "identity"
	case GreedyTraceback:
		return "traceback"
	}
	return "unknown"
}

// Options for an engine. They do not change once the engine is made.
type Options struct {
	Method          Method
	Greedy          GreedyVariant
	Traceback       bool  // get edit scripts during ExtendSeeds
	MinScore        int32 // drop candidates scoring less
	TracebackCutoff int32 // only candidates this good get a traceback
	MaxHSPs         int   // per subject, 0 for no limit
	NoRealloc       bool  // HSP lists never grow, a full list is an error
	ListCap         int   // starting size of HSP lists
	Backing         arena.Backing
	ArenaLimit      int  // bytes, 0 for no limit
	WordSize        int  // length of the seed words
	CompoAdjust     bool // adjust the matrix for composition in TracebackPass, proteins only
}

// DefaultOptions are blastn-like.
func DefaultOptions() Options {
	return Options{
		Method:   DP,
		Greedy:   GreedyScore,
		ListCap:  16,
		WordSize: 11,
	}
}

// Sizing is what the engine should expect. It only sets the starting
// size of the scratch space, which grows if it has to.
type Sizing struct {
	MaxQuery   int // longest query context
	MaxSubject int
	Contexts   int
}

// Stats counts work since the engine was made.
type Stats struct {
	Seeds        int // seeds given to ExtendSeeds
	Skipped      int // seeds inside an HSP already found
	Extensions   int // gapped extensions, both directions count as one
	Tracebacks   int
	ScratchBytes int // arena plus traceback buffer
}

// Engine is the scratch space and settings for one worker.
type Engine struct {
	sb    *score.Block
	opts  Options
	arena *arena.Arena
	tb    tbuf
	wf    wavefront
	sub   []byte // unpacked subject, only ever grows
	hits  []ungappedHit
	stats Stats
}

// ungappedHit is a seed after the ungapped pass.
type ungappedHit struct {
	seed  lookup.Seed
	ctx   int
	r     hsp.Region // query coordinates relative to the context
	score int32
}

// New checks the settings and makes the scratch space. sb is only
// read and may be shared with other engines.
func New(sb *score.Block, opts Options, sz Sizing) (*Engine, error) {
	if sb == nil {
		return nil, fmt.Errorf("nil scoring block: %w", common.ErrBadArg)
	}
	if err := sb.Validate(); err != nil {
		return nil, err
	}
	switch {
	case opts.Method > Full:
		return nil, fmt.Errorf("extension method %d: %w", opts.Method, common.ErrBadArg)
	case opts.Greedy > GreedyTraceback:
		return nil, fmt.Errorf("greedy variant %d: %w", opts.Greedy, common.ErrBadArg)
	case opts.WordSize < 1 || opts.MaxHSPs < 0 || opts.ListCap < 0 || opts.ArenaLimit < 0:
		return nil, fmt.Errorf("word size %d, max HSPs %d, list size %d, arena limit %d: %w",
			opts.WordSize, opts.MaxHSPs, opts.ListCap, opts.ArenaLimit, common.ErrBadArg)
	case opts.NoRealloc && opts.ListCap == 0:
		return nil, fmt.Errorf("lists that cannot grow need a size: %w", common.ErrBadArg)
	case sz.MaxQuery < 0 || sz.MaxSubject < 0 || sz.Contexts < 0:
		return nil, fmt.Errorf("sizing %+v: %w", sz, common.ErrBadArg)
	}
	if opts.Method == Greedy {
		if _, err := greedyUnits(sb, opts.Greedy != GreedyIdentity); err != nil {
			return nil, err
		}
		if opts.Traceback {
			if _, err := greedyUnits(sb, true); err != nil {
				return nil, err
			}
		}
	}
	bs := 2 * (sz.MaxSubject + 1) * cellSize
	if bs < minBlock {
		bs = minBlock
	}
	a, err := arena.New(arena.Options{Backing: opts.Backing, BlockSize: bs, Limit: opts.ArenaLimit})
	if err != nil {
		return nil, err
	}
	e := &Engine{sb: sb, opts: opts, arena: a}
	e.sub = make([]byte, 0, sz.MaxSubject)
	e.tb.st = make([]byte, 0, min(sz.MaxQuery, sz.MaxSubject))
	return e, nil
}

const (
	cellSize = 12
	minBlock = 1 << 16
)

// Close gives the scratch space back. The engine cannot be used after.
func (e *Engine) Close() error {
	e.tb = tbuf{}
	e.wf = wavefront{}
	e.sub, e.hits = nil, nil
	return e.arena.Release()
}

// Options are the settings the engine was made with.
func (e *Engine) Options() Options { return e.opts }

// Stats so far.
func (e *Engine) Stats() Stats {
	s := e.stats
	s.ScratchBytes = e.arena.Reserved() + e.tb.size()
	return s
}

// one runs a single direction.
func (e *Engine) one(a, b view, xdrop int32, tb bool) (extension, greedyResult, error) {
	e.arena.Reset()
	switch e.opts.Method {
	case Greedy:
		v := e.opts.Greedy
		if tb {
			v = GreedyTraceback
		}
		return e.greedy(a, b, xdrop, v)
	case Full:
		x, err := e.anchored(a, b, tb)
		return x, greedyResult{}, err
	}
	x, err := e.semiGapped(a, b, xdrop, tb)
	return x, greedyResult{}, err
}

// pair extends left and right from (qoff, soff) and puts the two
// halves together.
func (e *Engine) pair(q, s []byte, qoff, soff int, xdrop int32, tb bool) (hsp.Candidate, error) {
	e.stats.Extensions++
	left, gl, err := e.one(leftView(q, qoff), leftView(s, soff), xdrop, tb)
	if err != nil {
		return hsp.Candidate{}, err
	}
	right, gr, err := e.one(rightView(q, qoff), rightView(s, soff), xdrop, tb)
	if err != nil {
		return hsp.Candidate{}, err
	}
	c := hsp.Candidate{
		Region: hsp.Region{
			QStart: qoff - left.qlen, QEnd: qoff + 1 + right.qlen,
			SStart: soff - left.slen, SEnd: soff + 1 + right.slen,
		},
		Left:      left.score,
		Right:     right.score,
		SeedScore: e.sb.Score(q[qoff], s[soff]),
		QSeed:     qoff,
		SSeed:     soff,
	}
	c.Score = c.Left + c.Right + c.SeedScore
	if tb {
		e.stats.Tracebacks++
		script := left.script
		script.Reverse()
		script.Add(hsp.OpSub, 1)
		script.Join(right.script)
		c.Script = script
	}
	if e.opts.Method == Greedy && e.opts.Greedy == GreedyIdentity && !tb {
		matches := gl.matches + gr.matches
		mm := gl.mm + gr.mm
		if q[qoff] == s[soff] && q[qoff] <= seqblk.NaT {
			matches++
		} else {
			mm++
		}
		c.Ident = float64(matches) / float64(matches+mm+gl.gaps+gr.gaps)
		c.HasIdent = true
	}
	return c, nil
}

// Extend makes one gapped alignment through (qoff, soff). q and s are
// unpacked codes for one query context and the subject. The start
// pair is moved inside the sequences if it is off the end. If the
// engine does tracebacks and the score reaches TracebackCutoff, the
// alignment is redone with the final X-drop and gets a script.
func (e *Engine) Extend(q, s []byte, qoff, soff int) (hsp.Candidate, error) {
	if len(q) == 0 || len(s) == 0 {
		return hsp.Candidate{}, fmt.Errorf("extension with query length %d, subject length %d: %w",
			len(q), len(s), common.ErrBadArg)
	}
	qoff = min(max(qoff, 0), len(q)-1)
	soff = min(max(soff, 0), len(s)-1)
	scriptNow := e.opts.Method == Greedy && e.opts.Greedy == GreedyTraceback
	c, err := e.pair(q, s, qoff, soff, e.sb.XDropGapped, scriptNow)
	if err != nil {
		return hsp.Candidate{}, err
	}
	if e.opts.Traceback && c.Script == nil && c.Score >= e.opts.TracebackCutoff {
		ident, has := c.Ident, c.HasIdent
		if c, err = e.pair(q, s, qoff, soff, e.sb.XDropFinal, true); err != nil {
			return hsp.Candidate{}, err
		}
		c.Ident, c.HasIdent = ident, has
	}
	return c, nil
}

// unpack puts the subject in e.sub, one code per byte.
func (e *Engine) unpack(sub *seqblk.Block) []byte {
	if sub.Enc == seqblk.Letters {
		return sub.Data[:sub.Len]
	}
	if cap(e.sub) < sub.Len {
		e.sub = make([]byte, sub.Len)
	}
	e.sub = e.sub[:sub.Len]
	for i := range e.sub {
		e.sub[i] = sub.Base(i)
	}
	return e.sub
}

func (e *Engine) inputCheck(q *seqblk.Contexts, sub *seqblk.Block, list *hsp.List) error {
	if q == nil || sub == nil || list == nil {
		return fmt.Errorf("nil query, subject or list: %w", common.ErrBadArg)
	}
	need := sub.Len
	switch sub.Enc {
	case seqblk.NcbiNa2:
		need = (sub.Len + 3) >> 2
	case seqblk.NcbiNa4:
		need = (sub.Len + 1) >> 1
	}
	switch {
	case sub.Len < 0 || need > len(sub.Data):
		return fmt.Errorf("subject length %d with %d bytes of %s: %w", sub.Len, len(sub.Data), sub.Enc, common.ErrBadArg)
	case e.sb.Protein && sub.Enc != seqblk.Letters:
		return fmt.Errorf("protein search with %s subject: %w", sub.Enc, common.ErrBadArg)
	case q.Sentinel() != e.sb.Sentinel():
		return fmt.Errorf("query contexts do not match the scoring block: %w", common.ErrBadArg)
	}
	return nil
}

// hitOrder is best ungapped score first. Equal hits end up next to
// each other so duplicates can be dropped.
func hitOrder(a, b ungappedHit) int {
	switch {
	case a.score != b.score:
		return int(b.score) - int(a.score)
	case a.ctx != b.ctx:
		return a.ctx - b.ctx
	case a.r.SStart != b.r.SStart:
		return a.r.SStart - b.r.SStart
	case a.r.QStart != b.r.QStart:
		return a.r.QStart - b.r.QStart
	case a.r.SEnd != b.r.SEnd:
		return a.r.SEnd - b.r.SEnd
	}
	return a.r.QEnd - b.r.QEnd
}

// ExtendSeeds runs the seeds for one subject and appends what it
// finds to list. Each seed is the start of a word of WordSize in the
// concatenated query. Seeds get an ungapped extension first and are
// then done best first, so that a seed inside an HSP that is already
// in the list can be skipped. It returns the number of HSPs added.
// A list made without room to grow gives ErrCapacity. A list with a
// cap keeps the best HSPs.
func (e *Engine) ExtendSeeds(q *seqblk.Contexts, sub *seqblk.Block, seeds []lookup.Seed, list *hsp.List) (int, error) {
	if err := e.inputCheck(q, sub, list); err != nil {
		return 0, err
	}
	if list.TracebackDone() {
		return 0, fmt.Errorf("adding to a list after traceback: %w", common.ErrBadArg)
	}
	s := e.unpack(sub)
	sb, w := e.sb, e.opts.WordSize
	e.stats.Seeds += len(seeds)

	e.hits = e.hits[:0]
	for _, sd := range seeds {
		ctx, err := q.Index(int(sd.QOff))
		if err != nil {
			return 0, err
		}
		start, end := q.Bounds(ctx)
		r, sc, err := Ungapped(q.Codes[start:end], s, int(sd.QOff)-start, int(sd.SOff), w, sb, sb.XDropUngapped)
		if err != nil {
			return 0, err
		}
		e.hits = append(e.hits, ungappedHit{seed: sd, ctx: ctx, r: r, score: sc})
	}
	slices.SortFunc(e.hits, hitOrder)
	e.hits = slices.CompactFunc(e.hits, func(a, b ungappedHit) bool {
		return a.ctx == b.ctx && a.r == b.r
	})

	added := 0
	for _, h := range e.hits {
		start, end := q.Bounds(h.ctx)
		abs := h.r
		abs.QStart += start
		abs.QEnd += start
		if list.Covers(abs, h.score) {
			e.stats.Skipped++
			continue
		}
		qs := q.Codes[start:end]
		qoff := int(h.seed.QOff) - start + w/2
		c, err := e.Extend(qs, s, qoff, int(h.seed.SOff)+w/2)
		if err != nil {
			return added, err
		}
		if c.Score < e.opts.MinScore {
			continue
		}
		c.QStart += start
		c.QEnd += start
		c.QSeed += start
		c.Context = h.ctx
		c.UngappedScore, c.UngappedRegion = h.score, abs
		if list.Seen(&c) {
			continue
		}
		ok, err := e.store(list, &c)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// store appends c. If the list is at its cap, c replaces the worst
// HSP if it is better. A list that may not grow, whether the engine or
// the list itself says so, gives back ErrCapacity instead.
func (e *Engine) store(list *hsp.List, c *hsp.Candidate) (bool, error) {
	err := list.Append(c)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, hsp.ErrCapacity) || e.opts.NoRealloc || list.NoRealloc() || list.Len() == 0 {
		return false, err
	}
	list.SortByScore()
	if worst := list.At(list.Len() - 1); c.Score <= worst.Score() {
		return false, nil
	}
	list.Truncate(list.Len() - 1)
	return true, list.Append(c)
}

// TracebackPass redoes every HSP in list from its start pair with the
// final X-drop and an edit script. The new HSPs go in a new list,
// sorted, with the traceback flag set. With CompoAdjust and proteins,
// the matrix is first adjusted for the composition of the query
// context and the subject.
func (e *Engine) TracebackPass(q *seqblk.Contexts, sub *seqblk.Block, in *hsp.List) (*hsp.List, error) {
	if err := e.inputCheck(q, sub, in); err != nil {
		return nil, err
	}
	if in.TracebackDone() {
		return nil, fmt.Errorf("list already has its tracebacks: %w", common.ErrBadArg)
	}
	out, err := hsp.NewList(max(in.Len(), 1), e.opts.MaxHSPs, false)
	if err != nil {
		return nil, err
	}
	out.Subject = in.Subject
	s := e.unpack(sub)
	orig := e.sb
	defer func() { e.sb = orig }()
	adjusted := make(map[int]*score.Block)

	for i := 0; i < in.Len(); i++ {
		h := in.At(i)
		ctx := h.Context()
		start, end := q.Bounds(ctx)
		qs := q.Codes[start:end]
		e.sb = orig
		if e.opts.CompoAdjust && orig.Protein {
			if e.sb, err = e.adjust(adjusted, ctx, qs, s); err != nil {
				return nil, err
			}
		}
		qseed, sseed := h.SeedPoint()
		c, err := e.pair(qs, s, qseed-start, sseed, e.sb.XDropFinal, true)
		if err != nil {
			return nil, err
		}
		if c.Score < e.opts.MinScore {
			continue
		}
		old := h.Candidate()
		c.QStart += start
		c.QEnd += start
		c.QSeed += start
		c.Context = ctx
		c.UngappedScore, c.UngappedRegion = old.UngappedScore, old.UngappedRegion
		c.Ident, c.HasIdent = old.Ident, old.HasIdent
		if out.Seen(&c) {
			continue
		}
		if _, err := e.store(out, &c); err != nil {
			return nil, err
		}
	}
	out.SortByScore()
	out.MarkTracebackDone()
	return out, nil
}

// adjust gets the composition adjusted block for a query context,
// making it the first time.
func (e *Engine) adjust(cache map[int]*score.Block, ctx int, q, s []byte) (*score.Block, error) {
	if sb, ok := cache[ctx]; ok {
		return sb, nil
	}
	qc, _ := compo.Composition(q)
	sc, _ := compo.Composition(s)
	sb, err := compo.Adjust(e.sb, qc, sc)
	if err != nil {
		return nil, err
	}
	cache[ctx] = sb
	return sb, nil
}
