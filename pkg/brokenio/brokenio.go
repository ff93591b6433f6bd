// brokenio wraps readers and writers so they fail when asked to.
// Typical use: you have a writer for output, you write
// w = brokenio.NewWriter(w) to wrap it, then say when it should break.
// Everything works as before until then. It is for testing the error
// paths of code that reads or writes, not for anything else.
// 19 Sep 2026 writers as well, failures at a byte count or at random

package brokenio

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
)

// ErrBroken is what comes back from an artificial failure.
var ErrBroken = errors.New("brokenio: artificial failure")

// breaker is the part readers and writers share. failAt < 0 means
// never fail on a count.
type breaker struct {
	failAt   int
	probFail float32
	rnd      *rand.Rand
	nCalled  int
	nByte    int
	verbose  bool
}

// dflt sets default values for a new wrapper.
var dflt = breaker{failAt: -1}

// SetFailAt makes the wrapper fail once n bytes have gone through.
func (b *breaker) SetFailAt(n int) { b.failAt = n }

// SetProbFail sets the probability of a single call failing. It must
// be between zero and one. seed drives the random numbers, so a
// failure can be repeated.
func (b *breaker) SetProbFail(prob float32, seed int64) {
	b.probFail = prob
	b.rnd = rand.New(rand.NewSource(seed))
}

// SetVerbose sets the verbosity flag to true or false
func (b *breaker) SetVerbose(newV bool) { b.verbose = newV }

// Counts is the number of calls and bytes so far.
func (b *breaker) Counts() (calls, nbytes int) { return b.nCalled, b.nByte }

// room says how much of an n byte request may go through, and whether
// the call is to fail.
func (b *breaker) room(n int) (int, bool) {
	b.nCalled++
	if b.probFail > 0 && b.rnd.Float32() < b.probFail {
		return 0, true
	}
	if b.failAt < 0 {
		return n, false
	}
	left := b.failAt - b.nByte
	if left <= 0 {
		return 0, true
	}
	if n >= left {
		return left, true
	}
	return n, false
}

func (b *breaker) report(what string) {
	if b.verbose {
		fmt.Println(what, b.nCalled, "calls and", b.nByte, "bytes")
	}
}

// Reader is modelled on the various Readers in the standard library,
// but breaks when told to.
type Reader struct {
	breaker
	r io.Reader
}

// NewReader returns a wrapper around r that has not been told to fail.
func NewReader(r io.Reader) *Reader {
	return &Reader{breaker: dflt, r: r}
}

// Read passes the call on, but may cut it short and return ErrBroken
// with whatever did get read.
func (r *Reader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	m, fail := r.room(len(p))
	if m > 0 {
		n, err = r.r.Read(p[:m])
		r.nByte += n
	}
	if fail {
		r.report("reader broke after")
		return n, ErrBroken
	}
	return n, err
}

// Writer breaks writes the same way.
type Writer struct {
	breaker
	w io.Writer
}

// NewWriter returns a wrapper around w that has not been told to fail.
func NewWriter(w io.Writer) *Writer {
	return &Writer{breaker: dflt, w: w}
}

// Write writes what it is allowed to, and gives ErrBroken if that was
// not all of p.
func (w *Writer) Write(p []byte) (n int, err error) {
	m, fail := w.room(len(p))
	if m > 0 {
		n, err = w.w.Write(p[:m])
		w.nByte += n
		if err != nil {
			return n, err
		}
	}
	if fail {
		w.report("writer broke after")
		return n, ErrBroken
	}
	return n, nil
}
