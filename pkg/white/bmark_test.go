package white_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/andrew-torda/gapx/pkg/white"
)

// pasted looks like a sequence copied out of a flat file: a line
// number, then six blocks of ten residues.
func pasted(nline int) string {
	var sb strings.Builder
	for i := 0; i < nline; i++ {
		fmt.Fprintf(&sb, "%9d", 60*i+1)
		for j := 0; j < 6; j++ {
			sb.WriteString(" acgtnacgta")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func BenchmarkSqueeze(b *testing.B) {
	for _, nline := range []int{10, 1000} {
		src := []byte(pasted(nline))
		for _, f := range []struct {
			name string
			f    func(*[]byte)
		}{
			{"white", white.Remove},
			{"whitenum", white.RemoveWhiteNum},
		} {
			b.Run(fmt.Sprintf("%s/%d", f.name, nline), func(b *testing.B) {
				buf := make([]byte, len(src))
				b.SetBytes(int64(len(src)))
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					s := buf[:copy(buf, src)]
					f.f(&s)
				}
			})
		}
	}
}
