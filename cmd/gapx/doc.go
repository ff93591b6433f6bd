// 19 Sep 2026
/*

gapx finds gapped alignments between a query and one or more subjects.
Sequences are given on the command line.

Usage:
 gapx align --query SEQ --subject SEQ [--subject SEQ ...] [options]
 gapx randseq [options] file nseq length

For nucleotides, the query is searched on both strands. Words from a
lookup table give the seeds, each seed gets an ungapped extension,
and the best ones are extended with gaps, by X-drop dynamic
programming (--method dp), greedy wavefronts (--method greedy) or the
full matrix (--method full). The last is slow and only there to check
the other two.

Proteins have no lookup table here. Start points are given with
--seed qpos:spos, counting from 1.

Some flags:
  --traceback, -t
	Edit scripts during extension. Without it there are scores and
	end points only.
  --traceback-pass
	Redo every HSP from its start point with the final X-drop and
	an edit script.
  --compo
	Proteins only. Adjust BLOSUM62 for the composition of the query
	and subject before the traceback pass.
  --scan contig|stride|small|disc
	How the subject is scanned for words. disc uses the template
	given with --template.
  --workers, -j N
	Subjects are shared between N workers.
  --progress
	Progress bar on standard error.

The exit code is 0 on success, 2 for mistakes on the command line and
1 for anything else.

*/
package main
