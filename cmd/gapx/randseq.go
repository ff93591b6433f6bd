// 31 July 2020
// 19 Sep 2026 subcommand of gapx

package main

import (
	"os"
	"strconv"

	"github.com/andrew-torda/gapx/pkg/randseq"
	"github.com/spf13/cobra"
)

func randseqCmd() *cobra.Command {
	const iseed int64 = 1637
	var args randseq.Args
	cmd := &cobra.Command{
		Use:   "randseq [-r seed] [-p] file nseq length",
		Short: "Write random sequences in fasta format, for testing",
		Long: `Write nseq random sequences of the given length to file. A file
name of - means standard output. The same seed always gives the same
sequences.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, pos []string) error {
			const emsg = "failed converting %s to a positive integer"
			nseq, err := strconv.ParseUint(pos[1], 10, 32)
			if err != nil {
				return usageErr(emsg, pos[1])
			}
			nlen, err := strconv.ParseUint(pos[2], 10, 32)
			if err != nil {
				return usageErr(emsg, pos[2])
			}
			args.Nseq, args.Len = int(nseq), int(nlen)
			if args.Cmmt == "" {
				args.Cmmt = "randseq"
			}
			if fname := pos[0]; fname == "-" || fname == "" {
				args.Wrtr = cmd.OutOrStdout()
			} else {
				ft, err := os.Create(fname)
				if err != nil {
					return err
				}
				defer ft.Close()
				args.Wrtr = ft
			}
			return randseq.Write(&args)
		},
	}
	cmd.Flags().Int64VarP(&args.Iseed, "seed", "r", iseed, "random number seed")
	cmd.Flags().BoolVarP(&args.Protein, "protein", "p", false, "protein instead of nucleotides")
	cmd.Flags().StringVarP(&args.Cmmt, "comment", "c", "", "comment for the sequence lines")
	return cmd
}
