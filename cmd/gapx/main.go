// 19 Sep 2026

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/spf13/cobra"
)

// errUsage marks mistakes on the command line, as opposed to things
// going wrong later.
var errUsage = errors.New("usage")

func usageErr(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, errUsage)...)
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gapx",
		Short:         "Gapped extension of seed hits between a query and subjects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(alignCmd(), randseqCmd())
	return root
}

func main() {
	cmd := rootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gapx:", err)
		if errors.Is(err, errUsage) || errors.Is(err, common.ErrBadArg) {
			os.Exit(common.ExitUsageError)
		}
		os.Exit(common.ExitFailure)
	}
	os.Exit(common.ExitSuccess)
}
