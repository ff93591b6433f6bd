// 23 Feb 2018, reworked 5 Sep 2026
// Read a substitution matrix in the NCBI text layout.
// The parse goes into a float matrix, exactly as it always did. The
// integer table the aligners use is made from it afterwards.

package score

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/matrix"
)

// Submat is a substitution matrix as read from text. Its internals
// do not have to be exported.
type Submat struct {
	mat  *matrix.FMatrix2d
	cmap [128]int8
	name string
}

const notset int8 = -1

// CmmtScanner is a wrapper around bufio.Scanner that will ignore anything
// after a comment character and remove leading and trailing white space.
type CmmtScanner struct {
	*bufio.Scanner
	cmmt byte // Comment character
}

// NewCmmtScanner is a wrapper around scanner, but
//   - jumps over blank lines
//   - removes leading spaces
//   - removes anything after a comment character
func NewCmmtScanner(r io.Reader, cmmt byte) *CmmtScanner {
	return &CmmtScanner{bufio.NewScanner(r), cmmt}
}

// CBytes presents exactly the same interface as scanner.Bytes, but
// has to do a bit more work.
// Before returning, we remove anything after the comment symbol and
// strip leading and trailing white space.
// If this leaves us with an empty string, we call Scan again.
// Like the Bytes function, this works directly in the i/o buffer
// and does not allocate any memory.
func (s *CmmtScanner) CBytes() []byte {
	ok := true
	for b := s.Bytes(); ok; ok, b = s.Scan(), s.Bytes() {
		if i := bytes.IndexByte(b, s.cmmt); i >= 0 {
			b = b[:i]
		}
		b = bytes.TrimSpace(b)
		if len(b) > 0 {
			return b
		}
	}
	return nil
}

// alfbtLine reads the first non-comment line, which is the list of
// allowed characters. Each field has to be one character long.
func alfbtLine(inline []byte, submat *Submat) (int, error) {
	cmap := submat.cmap[:]
	for i := range cmap {
		cmap[i] = notset
	}
	f := bytes.Fields(inline)
	if len(f) == 0 {
		return 0, errors.New("alphabet line missing")
	}
	for _, c := range f {
		if len(c) != 1 {
			return 0, errors.New("alphabet line: expected a single character, got " + string(c))
		}
		if c[0] >= 128 {
			return 0, errors.New("alphabet line: non-ascii character in " + string(inline))
		}
	}
	for i, c := range f {
		cmap[c[0]] = int8(i)
	}
	for i, c := range f { // If not set, set both upper and lower case
		l := (bytes.ToLower(c))[0]
		u := (bytes.ToUpper(c))[0]
		if cmap[l] == notset {
			cmap[l] = int8(i)
		}
		if cmap[u] == notset {
			cmap[u] = int8(i)
		}
	}
	return len(f), nil
}

// Read reads a substitution matrix. name only goes into messages.
func Read(r io.Reader, name string) (*Submat, error) {
	submat := &Submat{name: name}
	scnr := NewCmmtScanner(r, '#')
	scnr.Scan()
	nAlfbt, err := alfbtLine(scnr.CBytes(), submat)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %v: %w", name, err, common.ErrBadArg)
	}
	submat.mat = matrix.NewFMatrix2d(nAlfbt, nAlfbt)
	pfx := "reading " + name
	nline := 0
	for scnr.Scan() {
		line := scnr.CBytes()
		if line == nil {
			break
		}
		fields := bytes.Fields(line)
		if len(fields) != nAlfbt+1 {
			return nil, fmt.Errorf("%s. Wrong number of items on line:\n%s: %w", pfx, line, common.ErrBadArg)
		}
		if len(fields[0]) != 1 || fields[0][0] >= 128 || submat.cmap[fields[0][0]] == notset {
			return nil, fmt.Errorf("%s: invalid row label on line %s: %w", pfx, line, common.ErrBadArg)
		}
		i := submat.cmap[fields[0][0]]
		for j := 0; j < nAlfbt; j++ {
			f, e := strconv.ParseFloat(string(fields[j+1]), 32)
			if e != nil {
				return nil, fmt.Errorf("%s: %v: %w", pfx, e, common.ErrBadArg)
			}
			submat.mat.Mat[i][j] = float32(f)
		}
		nline++
	}
	if err := scnr.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", pfx, err)
	}
	if nline != nAlfbt {
		return nil, fmt.Errorf("%s: expected %d rows, found %d: %w", pfx, nAlfbt, nline, common.ErrBadArg)
	}
	return submat, nil
}

// Score returns the similarity score of bytes a and b. ok is false if
// either is not in the matrix alphabet.
func (submat *Submat) Score(a, b byte) (f float32, ok bool) {
	if a >= 128 || b >= 128 {
		return 0, false
	}
	i, j := submat.cmap[a], submat.cmap[b]
	if i == notset || j == notset {
		return 0, false
	}
	return submat.mat.Mat[i][j], true
}

// Name is whatever the matrix was called when it was read.
func (submat *Submat) Name() string { return submat.name }

// String prints out a substitution matrix. Useful during debugging.
func (submat *Submat) String() string {
	var b strings.Builder
	nr := len(submat.mat.Mat)
	rev := make([]byte, nr)
	for c := 0; c < 128; c++ {
		if i := submat.cmap[c]; i != notset && rev[i] == 0 {
			rev[i] = byte(c)
		}
	}
	fmt.Fprintf(&b, "%4s", " ")
	for _, c := range rev {
		fmt.Fprintf(&b, "%4c", c)
	}
	b.WriteByte('\n')
	for i, row := range submat.mat.Mat {
		fmt.Fprintf(&b, "%4c", rev[i])
		for _, f := range row {
			fmt.Fprintf(&b, "%4.0f", f)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

const blosum62Text = `#  Matrix made by matblas from blosum62.iij
#  * column uses minimum score
#  BLOSUM Clustered Scoring Matrix in 1/2 Bit Units
#  Blocks Database = /data/blocks_5.0/blocks.dat
#  Cluster Percentage: >= 62
#  Entropy =   0.6979, Expected =  -0.5209
   A  R  N  D  C  Q  E  G  H  I  L  K  M  F  P  S  T  W  Y  V  B  Z  X  *
A  4 -1 -2 -2  0 -1 -1  0 -2 -1 -1 -1 -1 -2 -1  1  0 -3 -2  0 -2 -1  0 -4
R -1  5  0 -2 -3  1  0 -2  0 -3 -2  2 -1 -3 -2 -1 -1 -3 -2 -3 -1  0 -1 -4
N -2  0  6  1 -3  0  0  0  1 -3 -3  0 -2 -3 -2  1  0 -4 -2 -3  3  0 -1 -4
D -2 -2  1  6 -3  0  2 -1 -1 -3 -4 -1 -3 -3 -1  0 -1 -4 -3 -3  4  1 -1 -4
C  0 -3 -3 -3  9 -3 -4 -3 -3 -1 -1 -3 -1 -2 -3 -1 -1 -2 -2 -1 -3 -3 -2 -4
Q -1  1  0  0 -3  5  2 -2  0 -3 -2  1  0 -3 -1  0 -1 -2 -1 -2  0  3 -1 -4
E -1  0  0  2 -4  2  5 -2  0 -3 -3  1 -2 -3 -1  0 -1 -3 -2 -2  1  4 -1 -4
G  0 -2  0 -1 -3 -2 -2  6 -2 -4 -4 -2 -3 -3 -2  0 -2 -2 -3 -3 -1 -2 -1 -4
H -2  0  1 -1 -3  0  0 -2  8 -3 -3 -1 -2 -1 -2 -1 -2 -2  2 -3  0  0 -1 -4
I -1 -3 -3 -3 -1 -3 -3 -4 -3  4  2 -3  1  0 -3 -2 -1 -3 -1  3 -3 -3 -1 -4
L -1 -2 -3 -4 -1 -2 -3 -4 -3  2  4 -2  2  0 -3 -2 -1 -2 -1  1 -4 -3 -1 -4
K -1  2  0 -1 -3  1  1 -2 -1 -3 -2  5 -1 -3 -1  0 -1 -3 -2 -2  0  1 -1 -4
M -1 -1 -2 -3 -1  0 -2 -3 -2  1  2 -1  5  0 -2 -1 -1 -1 -1  1 -3 -1 -1 -4
F -2 -3 -3 -3 -2 -3 -3 -3 -1  0  0 -3  0  6 -4 -2 -2  1  3 -1 -3 -3 -1 -4
P -1 -2 -2 -1 -3 -1 -1 -2 -2 -3 -3 -1 -2 -4  7 -1 -1 -4 -3 -2 -2 -1 -2 -4
S  1 -1  1  0 -1  0  0  0 -1 -2 -2  0 -1 -2 -1  4  1 -3 -2 -2  0  0  0 -4
T  0 -1  0 -1 -1 -1 -1 -2 -2 -1 -1 -1 -1 -2 -1  1  5 -2 -2  0 -1 -1  0 -4
W -3 -3 -4 -4 -2 -2 -3 -2 -2 -3 -2 -3 -1  1 -4 -3 -2 11  2 -3 -4 -3 -2 -4
Y -2 -2 -2 -3 -2 -1 -2 -3  2 -1 -1 -2 -1  3 -3 -2 -2  2  7 -1 -3 -2 -1 -4
V  0 -3 -3 -3 -1 -2 -2 -3 -3  3  1 -2  1 -1 -2 -2  0 -3 -1  4 -3 -2 -1 -4
B -2 -1  3  4 -3  0  1 -1  0 -3 -4  0 -3 -3 -2  0 -1 -4 -3 -3  4  1 -1 -4
Z -1  0  0  1 -3  3  4 -2  0 -3 -3  1 -1 -3 -1  0 -1 -3 -2 -2  1  4 -1 -4
X  0 -1 -1 -1 -2 -1 -1 -1 -1 -1 -1 -1 -1 -1 -2  0  0 -2 -1 -1 -1 -1 -1 -4
* -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4 -4  1
`

// Blosum62 parses the built in matrix. It cannot fail unless someone
// has broken the text above.
func Blosum62() *Submat {
	sm, err := Read(strings.NewReader(blosum62Text), "BLOSUM62")
	if err != nil {
		panic("built in BLOSUM62 broken: " + err.Error())
	}
	return sm
}
