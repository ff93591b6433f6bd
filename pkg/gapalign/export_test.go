package gapalign

// One direction of extension from just before the first residues,
// so the test can see a single extension without the seed pair.

type OneWay struct {
	Score      int32
	QLen, SLen int
	CIGAR      string
}

func oneWay(x extension) OneWay {
	return OneWay{Score: x.score, QLen: x.qlen, SLen: x.slen, CIGAR: x.script.CIGAR()}
}

func (e *Engine) SemiGapped(a, b []byte, xdrop int32, tb bool) (OneWay, error) {
	e.arena.Reset()
	x, err := e.semiGapped(rightView(a, -1), rightView(b, -1), xdrop, tb)
	return oneWay(x), err
}

func (e *Engine) Anchored(a, b []byte, tb bool) (OneWay, error) {
	x, err := e.anchored(rightView(a, -1), rightView(b, -1), tb)
	return oneWay(x), err
}

func (e *Engine) GreedyOneWay(a, b []byte, xdrop int32, v GreedyVariant) (OneWay, error) {
	e.arena.Reset()
	x, _, err := e.greedy(rightView(a, -1), rightView(b, -1), xdrop, v)
	return oneWay(x), err
}

// Backwards reads a sequence from its end, as a left extension does.
func (e *Engine) Backwards(a, b []byte, xdrop int32) (OneWay, error) {
	e.arena.Reset()
	x, err := e.semiGapped(leftView(a, len(a)), leftView(b, len(b)), xdrop, true)
	return oneWay(x), err
}
