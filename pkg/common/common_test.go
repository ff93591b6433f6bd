package common_test

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/andrew-torda/gapx/pkg/common"
)

func TestWrapped(t *testing.T) {
	e1 := fmt.Errorf("scan range %d..%d: %w", 10, 2, ErrBadArg)
	if !errors.Is(e1, ErrBadArg) {
		t.Fatal("wrapped bad arg not recognised", e1)
	}
	if errors.Is(e1, ErrAlloc) {
		t.Fatal("bad arg mistaken for allocation failure")
	}
	e2 := fmt.Errorf("growing arena: %w", ErrAlloc)
	if !errors.Is(e2, ErrAlloc) {
		t.Fatal("wrapped alloc not recognised", e2)
	}
}
