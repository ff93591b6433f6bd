// 4 Sep 2026

// Package seqblk holds sequences the way the extension code wants to
// see them. Nucleotides are either packed (four bases to a byte, first
// base in the high bits), half packed (two bases to a byte as bit
// masks) or one code per byte. Proteins are always one code per byte.
// Nothing here ever changes a block once it is built.
package seqblk

import (
	"fmt"

	"github.com/andrew-torda/gapx/pkg/common"
)

// Encoding says how the bytes in a Block are to be read.
type Encoding byte

const (
	NcbiNa2 Encoding = iota // 2 bits per base, 4 bases per byte
	NcbiNa4                 // 4 bit masks, 2 bases per byte
	Letters                 // one code per byte, nucleotide or protein
)

func (e Encoding) String() string {
	switch e {
	case NcbiNa2:
		return "ncbi2na"
	case NcbiNa4:
		return "ncbi4na"
	case Letters:
		return "letters"
	}
	return "unknown"
}

// Unpacked nucleotide codes. ACGT are 0..3 so they can be used
// directly in a lookup word. Every ambiguity code collapses to NaN.
const (
	NaA        byte = 0
	NaC        byte = 1
	NaG        byte = 2
	NaT        byte = 3
	NaN        byte = 14
	NaSentinel byte = 15 // separates query contexts
	NaAlphabet      = 16
)

// Protein codes are ncbistdaa. Code 0 is the gap, used as the sentinel.
const (
	AaSentinel byte = 0
	AaAlphabet      = 28
	aaLetters       = "-ABCDEFGHIKLMNPQRSTVWXYZU*OJ"
)

// Block is a sequence with its length and encoding. Len counts
// residues, not bytes.
type Block struct {
	Data []byte
	Len  int
	Enc  Encoding
}

// bits4 are the ncbi4na masks for the four plain bases.
var bits4 = [4]byte{1, 2, 4, 8}

// fromBits4 turns a 4 bit mask back into an unpacked code.
var fromBits4 = [16]byte{
	NaSentinel, NaA, NaC, NaN, NaG, NaN, NaN, NaN,
	NaT, NaN, NaN, NaN, NaN, NaN, NaN, NaN}

// naCode maps ascii to unpacked codes. 0xff means not a nucleotide.
var naCode [256]byte

// aaCode maps ascii to ncbistdaa. 0xff means not a residue.
var aaCode [256]byte

func init() {
	for i := range naCode {
		naCode[i] = 0xff
		aaCode[i] = 0xff
	}
	for _, c := range []byte("RYMKWSBDHVNrymkwsbdhvn") {
		naCode[c] = NaN
	}
	for i, c := range []byte("ACGT") {
		naCode[c] = byte(i)
		naCode[c+('a'-'A')] = byte(i)
	}
	naCode['U'], naCode['u'] = NaT, NaT
	for i := 1; i < len(aaLetters); i++ {
		c := aaLetters[i]
		aaCode[c] = byte(i)
		if 'A' <= c && c <= 'Z' {
			aaCode[c+('a'-'A')] = byte(i)
		}
	}
}

// Base returns residue i as an unpacked code. For packed blocks it
// does the shifting. There is no check on i, like any slice index.
func (b *Block) Base(i int) byte {
	switch b.Enc {
	case NcbiNa2:
		return (b.Data[i>>2] >> (6 - 2*uint(i&3))) & 3
	case NcbiNa4:
		return fromBits4[(b.Data[i>>1]>>(4-4*uint(i&1)))&0xf]
	}
	return b.Data[i]
}

// EncodeNa turns ascii nucleotides into unpacked codes.
func EncodeNa(ascii []byte) ([]byte, error) {
	codes := make([]byte, len(ascii))
	for i, c := range ascii {
		if codes[i] = naCode[c]; codes[i] == 0xff {
			return nil, fmt.Errorf("bad nucleotide %q at position %d: %w", c, i, common.ErrBadArg)
		}
	}
	return codes, nil
}

// EncodeProtein turns ascii amino acids into ncbistdaa codes.
func EncodeProtein(ascii []byte) ([]byte, error) {
	codes := make([]byte, len(ascii))
	for i, c := range ascii {
		if codes[i] = aaCode[c]; codes[i] == 0xff {
			return nil, fmt.Errorf("bad residue %q at position %d: %w", c, i, common.ErrBadArg)
		}
	}
	return codes, nil
}

// Decode goes from codes back to printable letters.
func Decode(codes []byte, protein bool) string {
	s := make([]byte, len(codes))
	for i, c := range codes {
		switch {
		case protein && int(c) < len(aaLetters):
			s[i] = aaLetters[c]
		case protein:
			s[i] = '?'
		case c < 4:
			s[i] = "ACGT"[c]
		case c == NaSentinel:
			s[i] = '|'
		default:
			s[i] = 'N'
		}
	}
	return string(s)
}

// PackNa packs ascii nucleotides four to a byte. Ambiguous bases
// cannot be represented, so they go in as A, just as a database
// formatter does it, and their positions come back in amb.
func PackNa(ascii []byte) (blk *Block, amb []int, err error) {
	codes, err := EncodeNa(ascii)
	if err != nil {
		return nil, nil, err
	}
	blk, amb = PackCodes(codes)
	return blk, amb, nil
}

// PackCodes is PackNa for codes that are already unpacked.
func PackCodes(codes []byte) (blk *Block, amb []int) {
	n := len(codes)
	data := make([]byte, (n+3)>>2)
	for i, c := range codes {
		if c > NaT {
			amb = append(amb, i)
			c = NaA
		}
		data[i>>2] |= c << (6 - 2*uint(i&3))
	}
	return &Block{Data: data, Len: n, Enc: NcbiNa2}, amb
}

// PackNa4 packs ascii nucleotides two to a byte as bit masks. This
// keeps the ambiguity that PackNa throws away (as N).
func PackNa4(ascii []byte) (*Block, error) {
	codes, err := EncodeNa(ascii)
	if err != nil {
		return nil, err
	}
	data := make([]byte, (len(codes)+1)>>1)
	for i, c := range codes {
		m := byte(0xf)
		if c <= NaT {
			m = bits4[c]
		}
		data[i>>1] |= m << (4 - 4*uint(i&1))
	}
	return &Block{Data: data, Len: len(codes), Enc: NcbiNa4}, nil
}

// Unpack returns one code per residue, whatever the encoding.
func Unpack(b *Block) []byte {
	if b.Enc == Letters {
		return b.Data[:b.Len]
	}
	codes := make([]byte, b.Len)
	for i := range codes {
		codes[i] = b.Base(i)
	}
	return codes
}

// FromCodes wraps unpacked codes in a block without copying.
func FromCodes(codes []byte) *Block {
	return &Block{Data: codes, Len: len(codes), Enc: Letters}
}

// ReverseComplement of unpacked nucleotide codes. N stays N.
func ReverseComplement(codes []byte) []byte {
	r := make([]byte, len(codes))
	for i, c := range codes {
		if c <= NaT {
			c = NaT - c
		}
		r[len(codes)-1-i] = c
	}
	return r
}
