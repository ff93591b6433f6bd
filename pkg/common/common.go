// 3 Sep 2026

// Package common has the few things every other package wants:
// exit codes for the commands and the two errors that callers have
// to be able to tell apart.
package common

import (
	"errors"
)

const (
	ExitSuccess = iota
	ExitFailure
	ExitUsageError
)

// ErrBadArg is wrapped by every precondition violation. Backwards
// ranges, nil handles, wrong encodings, silly parameters.
var ErrBadArg = errors.New("bad argument")

// ErrAlloc is wrapped when scratch space or a matrix could not be
// allocated. A search that sees it should give up.
var ErrAlloc = errors.New("allocation failed")
