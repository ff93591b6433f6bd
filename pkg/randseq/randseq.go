// 31 July 2020
// 10 Sep 2026 codes instead of letters, mutations for the aligner tests

// Package randseq makes random sequences, and mutated copies of them,
// for tests and benchmarks. Everything is driven by a seed, so a
// failing test can be repeated.
package randseq

import (
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/seqblk"
)

// Alphabet is the set of codes to draw from.
type Alphabet []byte

var (
	// Na is the four plain bases.
	Na = Alphabet{seqblk.NaA, seqblk.NaC, seqblk.NaG, seqblk.NaT}
	// Protein is the twenty standard amino acids in ncbistdaa.
	Protein Alphabet
)

func init() {
	p, err := seqblk.EncodeProtein([]byte("ACDEFGHIKLMNPQRSTVWY"))
	if err != nil {
		panic(err)
	}
	Protein = p
}

// New returns n random codes.
func New(rnd *rand.Rand, alf Alphabet, n int) []byte {
	s := make([]byte, n)
	l := int32(len(alf))
	for i := range s {
		s[i] = alf[rnd.Int31n(l)]
	}
	return s
}

// Mutate changes about frac of the sites in s, in place, to some other
// letter of the alphabet. It returns the number changed.
func Mutate(rnd *rand.Rand, alf Alphabet, frac float64, s []byte) int {
	n := 0
	l := int32(len(alf))
	for i := range s {
		if rnd.Float64() >= frac {
			continue
		}
		for {
			c := alf[rnd.Int31n(l)]
			if c != s[i] || l == 1 {
				s[i] = c
				break
			}
		}
		n++
	}
	return n
}

// DelN removes n sites at random. The returned slice shares s.
func DelN(rnd *rand.Rand, n int, s []byte) ([]byte, error) {
	if n > len(s) || n < 0 {
		return s, fmt.Errorf("deleting %d from %d sites: %w", n, len(s), common.ErrBadArg)
	}
	for i := 0; i < n; i++ {
		pos := rnd.Intn(len(s))
		s = append(s[:pos], s[pos+1:]...)
	}
	return s, nil
}

// InsN puts n random letters at random positions.
func InsN(rnd *rand.Rand, alf Alphabet, n int, s []byte) []byte {
	l := int32(len(alf))
	for i := 0; i < n; i++ {
		s = append(s, 0)
		pos := rnd.Intn(len(s))
		copy(s[pos+1:], s[pos:])
		s[pos] = alf[rnd.Int31n(l)]
	}
	return s
}

// Args is the set of arguments for Write.
type Args struct {
	Iseed   int64     // random number seed
	Wrtr    io.Writer // where we write to
	Cmmt    string    // Comment for the sequences
	Nseq    int       // number of sequences
	Len     int       // Length of sequences
	Protein bool
}

// writeseq takes codes, turns them into letters and writes them with
// a comment line "> comment n".
func writeseq(sChan <-chan []byte, args *Args, errp *error, wg *sync.WaitGroup) {
	defer wg.Done()
	width := len(fmt.Sprintf("%d", args.Nseq))
	var i int
	for s := range sChan {
		i++
		if *errp != nil {
			continue
		}
		tmp := fmt.Sprintf("> %s %[2]*d\n%s\n", args.Cmmt, width, i, seqblk.Decode(s, args.Protein))
		if _, err := io.WriteString(args.Wrtr, tmp); err != nil {
			*errp = err
		}
	}
}

// Write writes random sequences in fasta format.
func Write(args *Args) error {
	var wg sync.WaitGroup
	var werr error
	alf := Na
	if args.Protein {
		alf = Protein
	}
	rnd := rand.New(rand.NewSource(args.Iseed))
	sChan := make(chan []byte)
	wg.Add(1)
	go writeseq(sChan, args, &werr, &wg)
	for i := 0; i < args.Nseq; i++ {
		sChan <- New(rnd, alf, args.Len)
	}
	close(sChan)
	wg.Wait()
	return werr
}
