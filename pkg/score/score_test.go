package score_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/andrew-torda/gapx/pkg/brokenio"
	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/andrew-torda/gapx/pkg/score"
	"github.com/andrew-torda/gapx/pkg/seqblk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlosum(t *testing.T) {
	smat := score.Blosum62()
	b := []byte{'a', 'C', 'w'}
	s := ""
	for _, x := range b {
		for _, y := range b {
			f, ok := smat.Score(x, y)
			if !ok {
				t.Fatal("no score for", string(x), string(y))
			}
			s += fmt.Sprint(string(x), " ", string(y), " ", f)
		}
	}
	if s != "a a 4a C 0a w -3C a 0C C 9C w -2w a -3w C -2w w 11" {
		t.Fatal("Got wrong score string from matrix", s)
	}
}

func TestReadErrors(t *testing.T) {
	var tests = []struct {
		name, text string
	}{
		{"empty", ""},
		{"long label", "AB C\nA 1 2\nC 2 1\n"},
		{"short row", "A C\nA 1\nC 2 1\n"},
		{"missing row", "A C\nA 1 2\n"},
		{"not a number", "A C\nA 1 x\nC 2 1\n"},
		{"unknown row", "A C\nA 1 2\nQ 2 1\n"},
	}
	for _, tt := range tests {
		_, err := score.Read(strings.NewReader(tt.text), tt.name)
		if !errors.Is(err, common.ErrBadArg) {
			t.Fatal(tt.name, "wanted bad argument, got", err)
		}
	}
	const tiny = "# cmt\n A C # more\nA 1 -1\n\nC -1 1\n"
	r := brokenio.NewReader(strings.NewReader(tiny))
	r.SetFailAt(12)
	_, err := score.Read(r, "broken")
	assert.ErrorIs(t, err, brokenio.ErrBroken)
	assert.False(t, errors.Is(err, common.ErrBadArg), "i/o failure is not a bad matrix")

	sm, err := score.Read(strings.NewReader(tiny), "tiny")
	require.NoError(t, err)
	f, ok := sm.Score('c', 'C')
	assert.True(t, ok)
	assert.Equal(t, float32(1), f)
}

func TestNa(t *testing.T) {
	sb, err := score.NewNa(1, -2, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), sb.Score(seqblk.NaA, seqblk.NaA))
	assert.Equal(t, int32(-2), sb.Score(seqblk.NaA, seqblk.NaC))
	assert.Equal(t, int32(-2), sb.Score(seqblk.NaN, seqblk.NaN))
	assert.Equal(t, score.SentinelScore, sb.Score(seqblk.NaSentinel, seqblk.NaA))
	assert.Equal(t, int32(-2), sb.MinScore())

	_, err = score.NewNa(0, -2, 5, 2)
	assert.True(t, errors.Is(err, common.ErrBadArg))
	_, err = score.NewNa(1, -2, -1, 2)
	assert.True(t, errors.Is(err, common.ErrBadArg))
}

func TestProtein(t *testing.T) {
	sb, err := score.NewProtein(score.Blosum62(), 11, 1)
	require.NoError(t, err)
	codes, err := seqblk.EncodeProtein([]byte("WCUX"))
	require.NoError(t, err)
	w, c, u, x := codes[0], codes[1], codes[2], codes[3]
	assert.Equal(t, int32(11), sb.Score(w, w))
	assert.Equal(t, int32(-2), sb.Score(w, c))
	assert.Equal(t, sb.Score(x, w), sb.Score(u, w), "U should score like X")
	assert.Equal(t, score.SentinelScore, sb.Score(seqblk.AaSentinel, w))
	assert.True(t, sb.Protein)
}

func TestWithMatrix(t *testing.T) {
	sb, err := score.NewNa(2, -3, 5, 2)
	require.NoError(t, err)
	c := sb.WithMatrix(sb.Matrix)
	c.Matrix[0][0] = 99
	assert.Equal(t, int32(2), sb.Matrix[0][0])
	assert.Equal(t, sb.GapOpen, c.GapOpen)
}

func TestXDropFromBits(t *testing.T) {
	assert.Equal(t, int32(16), score.XDropFromBits(7, 0.3176))
}
