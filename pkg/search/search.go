// 18 Sep 2026

// Package search runs one nucleotide query against a set of packed
// subjects. The lookup table is built once and shared. Each worker
// has its own extension engine and takes subjects from a channel
// until they run out or the context is cancelled.
package search

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"time"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/gapalign"
	"github.com/andrew-torda/gapx/pkg/hsp"
	"github.com/andrew-torda/gapx/pkg/lookup"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/seqblk"
	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// Options for a search. The engine's WordSize is replaced by the span
// of the lookup words.
type Options struct {
	Engine        gapalign.Options
	Scan          lookup.Kind
	WordLen       int             // lookup word length for the contiguous tables
	Stride        int             // for ScanStride
	Template      lookup.Template // for ScanDisc
	Workers       int             // 0 means one per CPU
	Batch         int             // seeds handed to the engine at a time
	TracebackPass bool            // finish every subject with a traceback pass
	Vbsty         int             // 0 is quiet
	Progress      io.Writer       // progress bar goes here, nil for none
}

// DefaultOptions are blastn-like, with contiguous words of 11.
func DefaultOptions() Options {
	return Options{
		Engine:  gapalign.DefaultOptions(),
		Scan:    lookup.ScanContig,
		WordLen: 11,
		Batch:   4096,
	}
}

// Result has one HSP list per subject, in the order the subjects
// came in. A subject with nothing found has an empty list.
type Result struct {
	Lists   []*hsp.List
	Stats   gapalign.Stats // summed over the workers
	Elapsed time.Duration
}

// NumHSPs counts over all subjects.
func (r *Result) NumHSPs() int {
	n := 0
	for _, l := range r.Lists {
		n += l.Len()
	}
	return n
}

// newScanner builds the table the options ask for.
func newScanner(q *seqblk.Contexts, opts *Options) (lookup.Scanner, error) {
	var t lookup.Table
	var err error
	switch opts.Scan {
	case lookup.ScanContig, lookup.ScanStride:
		t, err = lookup.NewNaTable(q, opts.WordLen)
	case lookup.ScanSmall:
		t, err = lookup.NewSmallNaTable(q, opts.WordLen)
	case lookup.ScanDisc:
		t, err = lookup.NewDiscTable(q, opts.Template)
	default:
		return nil, fmt.Errorf("scan kind %d: %w", opts.Scan, common.ErrBadArg)
	}
	if err != nil {
		return nil, err
	}
	return lookup.NewScanner(opts.Scan, t, lookup.Options{Stride: opts.Stride})
}

func maxLen(subjects []*seqblk.Block) int {
	m := 0
	for _, s := range subjects {
		if s != nil && s.Len > m {
			m = s.Len
		}
	}
	return m
}

// worker is one goroutine's share of the search.
type worker struct {
	e     *gapalign.Engine
	sc    lookup.Scanner
	query *seqblk.Contexts
	opts  *Options
}

// subject finds the HSPs for one subject.
func (w *worker) subject(i int, sub *seqblk.Block) (*hsp.List, error) {
	eo := w.e.Options()
	list, err := hsp.NewList(eo.ListCap, eo.MaxHSPs, eo.NoRealloc)
	if err != nil {
		return nil, err
	}
	list.Subject = i
	if sub == nil {
		return nil, fmt.Errorf("nil subject: %w", common.ErrBadArg)
	}
	if sub.Len < w.sc.Span() {
		return list, nil
	}
	it, err := lookup.NewIterator(w.sc, sub, w.opts.Batch)
	if err != nil {
		return nil, err
	}
	for it.Next() {
		if _, err := w.e.ExtendSeeds(w.query, sub, it.Seeds(), list); err != nil {
			return nil, err
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if !w.opts.TracebackPass || list.Len() == 0 {
		list.SortByScore()
		return list, nil
	}
	return w.e.TracebackPass(w.query, sub, list)
}

// newBar is nil without somewhere to draw it.
func newBar(out io.Writer, n int) (*mpb.Progress, *mpb.Bar) {
	if out == nil || n == 0 {
		return nil, nil
	}
	p := mpb.New(mpb.WithWidth(40), mpb.WithOutput(out))
	bar := p.AddBar(int64(n),
		mpb.PrependDecorators(
			decor.Name("subjects: ", decor.WC{W: len("subjects: "), C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.OnComplete(decor.Name(""), " done"),
		),
	)
	return p, bar
}

// Search runs query against every subject. Subjects must be packed
// two bits to a base. The first error from any worker stops the rest
// and comes back. A cancelled context is checked between subjects.
func Search(ctx context.Context, sb *score.Block, query *seqblk.Contexts, subjects []*seqblk.Block, opts Options) (*Result, error) {
	start := time.Now()
	switch {
	case sb == nil || query == nil:
		return nil, fmt.Errorf("nil scoring block or query: %w", common.ErrBadArg)
	case sb.Protein:
		return nil, fmt.Errorf("word seeding is nucleotide only: %w", common.ErrBadArg)
	case opts.Workers < 0 || opts.Batch < 1:
		return nil, fmt.Errorf("%d workers, batch of %d: %w", opts.Workers, opts.Batch, common.ErrBadArg)
	}
	sc, err := newScanner(query, &opts)
	if err != nil {
		return nil, err
	}
	eo := opts.Engine
	eo.WordSize = sc.Span()
	sz := gapalign.Sizing{MaxQuery: query.MaxLen(), MaxSubject: maxLen(subjects), Contexts: query.Num()}

	nw := opts.Workers
	if nw == 0 {
		nw = runtime.NumCPU()
	}
	nw = max(min(nw, len(subjects)), 1)
	engines := make([]*gapalign.Engine, 0, nw)
	defer func() {
		for _, e := range engines {
			e.Close()
		}
	}()
	for k := 0; k < nw; k++ {
		e, err := gapalign.New(sb, eo, sz)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}
	if opts.Vbsty > 0 {
		log.Printf("search: %s subjects, %s bases in the longest, %d workers, %s scan of span %d",
			humanize.Comma(int64(len(subjects))), humanize.Comma(int64(sz.MaxSubject)), nw, opts.Scan, sc.Span())
	}

	res := &Result{Lists: make([]*hsp.List, len(subjects))}
	jobs := make(chan int)
	p, bar := newBar(opts.Progress, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range subjects {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for _, e := range engines {
		w := &worker{e: e, sc: sc, query: query, opts: &opts}
		g.Go(func() error {
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				l, err := w.subject(i, subjects[i])
				if err != nil {
					return fmt.Errorf("subject %d: %w", i, err)
				}
				res.Lists[i] = l
				if bar != nil {
					bar.Increment()
				}
				if opts.Vbsty > 2 {
					log.Printf("search: subject %d, %d HSPs, best %d", i, l.Len(), l.Best())
				}
			}
			return nil
		})
	}
	err = g.Wait()
	if p != nil {
		if !bar.Completed() {
			bar.Abort(false)
		}
		p.Wait()
	}
	if err != nil {
		return nil, err
	}

	for _, e := range engines {
		st := e.Stats()
		res.Stats.Seeds += st.Seeds
		res.Stats.Skipped += st.Skipped
		res.Stats.Extensions += st.Extensions
		res.Stats.Tracebacks += st.Tracebacks
		res.Stats.ScratchBytes += st.ScratchBytes
	}
	res.Elapsed = time.Since(start)
	if opts.Vbsty > 0 {
		log.Printf("search: %s seeds, %s skipped, %s extensions, %s HSPs, %s scratch, %v",
			humanize.Comma(int64(res.Stats.Seeds)), humanize.Comma(int64(res.Stats.Skipped)),
			humanize.Comma(int64(res.Stats.Extensions)), humanize.Comma(int64(res.NumHSPs())),
			humanize.Bytes(uint64(res.Stats.ScratchBytes)), res.Elapsed)
	}
	return res, nil
}
