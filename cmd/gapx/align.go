// 19 Sep 2026

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/andrew-torda/gapx/pkg/arena"
	"github.com/andrew-torda/gapx/pkg/compo"
	"github.com/andrew-torda/gapx/pkg/gapalign"
	"github.com/andrew-torda/gapx/pkg/hsp"
	"github.com/andrew-torda/gapx/pkg/lookup"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/search"
	"github.com/andrew-torda/gapx/pkg/seqblk"
	"github.com/andrew-torda/gapx/pkg/white"
	"github.com/spf13/cobra"
)

// alignFlags is literally the command line flags after parsing.
type alignFlags struct {
	query           string
	subjects        []string
	protein         bool
	reward, penalty int32
	open, extend    int32
	method, greedy  string
	scan, template  string
	traceback       bool
	tbPass          bool
	compo           bool
	mmap            bool
	progress        bool
	minScore        int32
	xdrop           int32
	maxHSPs         int
	word, stride    int
	workers         int
	seeds           []string
	verbose         int
}

func alignCmd() *cobra.Command {
	var f alignFlags
	cmd := &cobra.Command{
		Use:   "align --query SEQ --subject SEQ [--subject SEQ ...]",
		Short: "Find gapped alignments of a query against subjects",
		Long: `Find gapped alignments of a query against one or more subjects.

Sequences are given as letters on the command line. Spaces, newlines
and digits are ignored, so a sequence can be pasted with its line
numbers. Nucleotide queries
are searched on both strands with word seeds from a lookup table.
Protein queries need their start points given with --seed.

Output is tab separated, one line per HSP:

    subject  index of the subject, from 1
    strand   + or - for nucleotides, . for proteins
    qstart   query start, from 1, on the strand searched
    qend     query end
    sstart   subject start, from 1
    send     subject end
    score    raw score
    ident    percent identity, from the script or the greedy pass
    cigar    edit script if there was a traceback
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign(cmd.Context(), cmd, &f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.query, "query", "q", "", "query sequence")
	fl.StringArrayVarP(&f.subjects, "subject", "s", nil, "subject sequence, may be repeated")
	fl.BoolVarP(&f.protein, "protein", "p", false, "sequences are protein, scored with BLOSUM62")
	fl.Int32Var(&f.reward, "reward", 1, "nucleotide match reward")
	fl.Int32Var(&f.penalty, "penalty", -2, "nucleotide mismatch penalty")
	fl.Int32Var(&f.open, "gapopen", 5, "gap open cost (11 for protein unless set)")
	fl.Int32Var(&f.extend, "gapextend", 2, "gap extension cost (1 for protein unless set)")
	fl.StringVar(&f.method, "method", "dp", "extension method: dp, greedy or full")
	fl.StringVar(&f.greedy, "greedy", "score", "greedy variant: score, identity or traceback")
	fl.StringVar(&f.scan, "scan", "contig", "scanner: contig, stride, small or disc")
	fl.StringVar(&f.template, "template", string(lookup.Coding11of16), "template for the disc scanner")
	fl.BoolVarP(&f.traceback, "traceback", "t", false, "edit scripts while extending")
	fl.BoolVar(&f.tbPass, "traceback-pass", false, "redo every HSP with the final X-drop and an edit script")
	fl.BoolVar(&f.compo, "compo", false, "adjust the protein matrix for composition in the traceback pass")
	fl.BoolVar(&f.mmap, "mmap", false, "scratch space in mapped memory instead of the heap")
	fl.BoolVar(&f.progress, "progress", false, "progress bar on stderr")
	fl.Int32Var(&f.minScore, "min-score", 0, "report nothing scoring less")
	fl.Int32Var(&f.xdrop, "xdrop", 0, "gapped X-drop in raw score, 0 for the default")
	fl.IntVar(&f.maxHSPs, "max-hsps", 0, "most HSPs per subject, 0 for no limit")
	fl.IntVarP(&f.word, "word", "w", 11, "lookup word length")
	fl.IntVar(&f.stride, "stride", 1, "step between subject words for the stride scanner")
	fl.IntVarP(&f.workers, "workers", "j", 0, "number of workers, 0 for one per CPU")
	fl.StringArrayVar(&f.seeds, "seed", nil, "protein start point qpos:spos, from 1, may be repeated")
	fl.CountVarP(&f.verbose, "verbose", "v", "more chatter, may be repeated")
	return cmd
}

func parseMethod(s string) (gapalign.Method, error) {
	for _, m := range []gapalign.Method{gapalign.DP, gapalign.Greedy, gapalign.Full} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, usageErr("unknown method %q", s)
}

func parseGreedy(s string) (gapalign.GreedyVariant, error) {
	for _, v := range []gapalign.GreedyVariant{gapalign.GreedyScore, gapalign.GreedyIdentity, gapalign.GreedyTraceback} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, usageErr("unknown greedy variant %q", s)
}

func parseScan(s string) (lookup.Kind, error) {
	switch s {
	case "contig":
		return lookup.ScanContig, nil
	case "stride":
		return lookup.ScanStride, nil
	case "small":
		return lookup.ScanSmall, nil
	case "disc":
		return lookup.ScanDisc, nil
	}
	return 0, usageErr("unknown scanner %q", s)
}

// parseSeed reads qpos:spos, counting from 1, and gives offsets from 0.
func parseSeed(s string) (q, sub int, err error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, usageErr("seed %q is not qpos:spos", s)
	}
	if q, err = strconv.Atoi(a); err == nil {
		sub, err = strconv.Atoi(b)
	}
	if err != nil || q < 1 || sub < 1 {
		return 0, 0, usageErr("seed %q is not two positive numbers", s)
	}
	return q - 1, sub - 1, nil
}

// scoring builds the scoring block from the flags.
func scoring(cmd *cobra.Command, f *alignFlags) (*score.Block, error) {
	var sb *score.Block
	var err error
	if f.protein {
		open, extend := f.open, f.extend
		if !cmd.Flags().Changed("gapopen") {
			open = 11
		}
		if !cmd.Flags().Changed("gapextend") {
			extend = 1
		}
		sb, err = score.NewProtein(score.Blosum62(), open, extend)
	} else {
		sb, err = score.NewNa(f.reward, f.penalty, f.open, f.extend)
	}
	if err != nil {
		return nil, err
	}
	if f.xdrop > 0 {
		sb.XDropGapped = f.xdrop
		if sb.XDropFinal < f.xdrop {
			sb.XDropFinal = f.xdrop
		}
	}
	return sb, nil
}

func engineOpts(f *alignFlags) (gapalign.Options, error) {
	opts := gapalign.DefaultOptions()
	var err error
	if opts.Method, err = parseMethod(f.method); err != nil {
		return opts, err
	}
	if opts.Greedy, err = parseGreedy(f.greedy); err != nil {
		return opts, err
	}
	opts.Traceback = f.traceback
	opts.MinScore = f.minScore
	opts.MaxHSPs = f.maxHSPs
	opts.CompoAdjust = f.compo
	if f.mmap {
		opts.Backing = arena.Mmap
	}
	return opts, nil
}

// residues drops the spaces, newlines and numbers of a sequence
// pasted from a file.
func residues(s string) []byte {
	b := []byte(s)
	white.RemoveWhiteNum(&b)
	return b
}

// tmpl lets the disc template be written in groups, as "1101 1011".
func (f *alignFlags) tmpl() lookup.Template {
	b := []byte(f.template)
	white.Remove(&b)
	return lookup.Template(b)
}

// gather cleans up the query and subjects from the command line.
func (f *alignFlags) gather() (query []byte, subjects [][]byte, err error) {
	query = residues(f.query)
	for _, s := range f.subjects {
		subjects = append(subjects, residues(s))
	}
	if len(query) == 0 || len(subjects) == 0 {
		return nil, nil, usageErr("need a query and at least one subject")
	}
	return query, subjects, nil
}

func runAlign(ctx context.Context, cmd *cobra.Command, f *alignFlags) error {
	qres, sres, err := f.gather()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sb, err := scoring(cmd, f)
	if err != nil {
		return err
	}
	eo, err := engineOpts(f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if f.protein {
		return alignProtein(out, sb, eo, f, qres, sres)
	}
	if len(f.seeds) > 0 {
		return usageErr("--seed is only for proteins, nucleotides are seeded from words")
	}

	qcodes, err := seqblk.EncodeNa(qres)
	if err != nil {
		return err
	}
	query := seqblk.NaStrands(qcodes)
	subjects := make([]*seqblk.Block, len(sres))
	for i, s := range sres {
		if subjects[i], _, err = seqblk.PackNa(s); err != nil {
			return fmt.Errorf("subject %d: %w", i+1, err)
		}
	}
	opts := search.DefaultOptions()
	opts.Engine = eo
	if opts.Scan, err = parseScan(f.scan); err != nil {
		return err
	}
	opts.WordLen = f.word
	opts.Stride = f.stride
	opts.Template = f.tmpl()
	opts.Workers = f.workers
	opts.TracebackPass = f.tbPass
	opts.Vbsty = f.verbose
	if f.progress {
		opts.Progress = os.Stderr
	}
	res, err := search.Search(ctx, sb, query, subjects, opts)
	if err != nil {
		return err
	}
	return writeTable(out, query, subjects, res.Lists, false)
}

// alignProtein extends the seeds given on the command line. There is
// no lookup table for proteins.
func alignProtein(out io.Writer, sb *score.Block, eo gapalign.Options, f *alignFlags, qres []byte, sres [][]byte) error {
	if len(f.seeds) == 0 {
		return usageErr("protein alignment needs at least one --seed")
	}
	qcodes, err := seqblk.EncodeProtein(qres)
	if err != nil {
		return err
	}
	query := seqblk.NewContexts(seqblk.AaSentinel, qcodes)
	start, _ := query.Bounds(0)
	eo.WordSize = 1
	subjects := make([]*seqblk.Block, len(sres))
	longest := 0
	for i, s := range sres {
		codes, err := seqblk.EncodeProtein(s)
		if err != nil {
			return fmt.Errorf("subject %d: %w", i+1, err)
		}
		subjects[i] = seqblk.FromCodes(codes)
		longest = max(longest, len(codes))
	}
	e, err := gapalign.New(sb, eo, gapalign.Sizing{MaxQuery: len(qcodes), MaxSubject: longest, Contexts: 1})
	if err != nil {
		return err
	}
	defer e.Close()

	var qcomp []float64
	if f.compo && f.verbose > 0 {
		qcomp, _ = compo.Composition(qcodes)
	}
	lists := make([]*hsp.List, len(subjects))
	for i, sub := range subjects {
		if qcomp != nil {
			scomp, n := compo.Composition(sub.Data)
			log.Printf("subject %d: %d standard residues, relative entropy to query %.3f, cosine %.3f",
				i+1, n, compo.RelEntropy(scomp, qcomp, 1e-6), compo.CosSim(scomp, qcomp))
		}
		var seeds []lookup.Seed
		for _, sd := range f.seeds {
			q, s, err := parseSeed(sd)
			if err != nil {
				return err
			}
			if q >= len(qcodes) || s >= sub.Len {
				continue
			}
			seeds = append(seeds, lookup.Seed{QOff: int32(start + q), SOff: int32(s)})
		}
		list, err := hsp.NewList(eo.ListCap, eo.MaxHSPs, eo.NoRealloc)
		if err != nil {
			return err
		}
		list.Subject = i
		if _, err := e.ExtendSeeds(query, sub, seeds, list); err != nil {
			return fmt.Errorf("subject %d: %w", i+1, err)
		}
		if (f.tbPass || f.compo) && list.Len() > 0 {
			if list, err = e.TracebackPass(query, sub, list); err != nil {
				return fmt.Errorf("subject %d: %w", i+1, err)
			}
		} else {
			list.SortByScore()
		}
		lists[i] = list
	}
	return writeTable(out, query, subjects, lists, true)
}

// writeTable prints one line per HSP. Query positions are on the
// strand that was searched.
func writeTable(out io.Writer, query *seqblk.Contexts, subjects []*seqblk.Block, lists []*hsp.List, protein bool) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "subject\tstrand\tqstart\tqend\tsstart\tsend\tscore\tident\tcigar")
	for i, l := range lists {
		var sub []byte
		if l.Len() > 0 {
			sub = seqblk.Unpack(subjects[i])
		}
		for _, h := range l.HSPs() {
			ctx := h.Context()
			start, _ := query.Bounds(ctx)
			strand := "."
			if !protein {
				strand = "+"
				if ctx == 1 {
					strand = "-"
				}
			}
			ident := "-"
			if f, ok := h.Identity(); ok {
				ident = fmt.Sprintf("%.1f", 100*f)
			} else if h.HasScript() {
				q := query.Codes[h.QueryStart():h.QueryEnd()]
				s := sub[h.SubjectStart():h.SubjectEnd()]
				if st, err := h.Script().Stats(q, s); err == nil {
					ident = fmt.Sprintf("%.1f", 100*st.Identity())
				}
			}
			cigar := "-"
			if h.HasScript() {
				cigar = h.Script().CIGAR()
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n", i+1, strand,
				h.QueryStart()-start+1, h.QueryEnd()-start, h.SubjectStart()+1, h.SubjectEnd(),
				h.Score(), ident, cigar)
		}
	}
	return tw.Flush()
}
