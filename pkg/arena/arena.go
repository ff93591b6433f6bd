// 6 Sep 2026

// Package arena is the scratch memory behind the aligners. An arena
// is a list of blocks. Views are carved off the blocks in order and
// are only valid until the next Reset. Reset rewinds to the start but
// keeps every block, so a search that has once seen a long subject
// never has to allocate for it again. Nothing is given back until
// Release.
//
// Blocks come from the Go heap or from anonymous memory maps. With
// maps, the memory is outside the garbage collector and is returned
// to the system as soon as Release is called.
//
// An arena is owned by one goroutine. There is no locking.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/andrew-torda/gapx/pkg/common"
	"github.com/edsrzf/mmap-go"
)

// Backing says where blocks come from.
type Backing byte

const (
	Heap Backing = iota
	Mmap
)

func (b Backing) String() string {
	if b == Mmap {
		return "mmap"
	}
	return "heap"
}

const (
	align         = 8
	dfltBlockSize = 1 << 20
)

// Options for a new arena. Limit of zero means no limit.
type Options struct {
	Backing   Backing
	BlockSize int // size of the first block and minimum size of later ones
	Limit     int // refuse to hold more than this many bytes
}

type block struct {
	buf []byte
	mm  mmap.MMap // nil for heap blocks
}

// Arena is the scratch memory.
type Arena struct {
	opts      Options
	blocks    []block
	cur       int // block we are carving from
	off       int // next free byte in blocks[cur]
	used      int // bytes handed out since Reset
	highWater int
	reserved  int
	released  bool
}

// New makes an arena and allocates its first block.
func New(opts Options) (*Arena, error) {
	if opts.BlockSize < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("arena block size %d limit %d: %w", opts.BlockSize, opts.Limit, common.ErrBadArg)
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = dfltBlockSize
	}
	if opts.Limit > 0 && opts.BlockSize > opts.Limit {
		opts.BlockSize = opts.Limit
	}
	a := &Arena{opts: opts}
	if err := a.grow(opts.BlockSize); err != nil {
		return nil, err
	}
	return a, nil
}

// grow adds a block of at least n bytes.
func (a *Arena) grow(n int) error {
	if n < a.opts.BlockSize {
		n = a.opts.BlockSize
	}
	if n < a.reserved { // keep doubling so a long run of growth is cheap
		n = a.reserved
	}
	if a.opts.Limit > 0 && a.reserved+n > a.opts.Limit {
		n = a.opts.Limit - a.reserved
	}
	if a.opts.Limit > 0 && n <= 0 {
		return fmt.Errorf("arena holds %d bytes, limit %d: %w", a.reserved, a.opts.Limit, common.ErrAlloc)
	}
	var b block
	switch a.opts.Backing {
	case Mmap:
		mm, err := mmap.MapRegion(nil, n, mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			return fmt.Errorf("mapping %d bytes: %v: %w", n, err, common.ErrAlloc)
		}
		b = block{buf: mm, mm: mm}
	default:
		b = block{buf: make([]byte, n)}
	}
	a.blocks = append(a.blocks, b)
	a.reserved += n
	return nil
}

// alloc hands out nbytes of zeroed, aligned memory.
func (a *Arena) alloc(nbytes int) ([]byte, error) {
	if a.released {
		return nil, fmt.Errorf("arena already released: %w", common.ErrBadArg)
	}
	if nbytes < 0 {
		return nil, fmt.Errorf("arena view of %d bytes: %w", nbytes, common.ErrBadArg)
	}
	nb := (nbytes + align - 1) &^ (align - 1)
	for {
		for ; a.cur < len(a.blocks); a.cur, a.off = a.cur+1, 0 {
			if buf := a.blocks[a.cur].buf; len(buf)-a.off >= nb {
				v := buf[a.off : a.off+nbytes : a.off+nb]
				clear(v)
				a.off += nb
				a.used += nb
				if a.used > a.highWater {
					a.highWater = a.used
				}
				return v, nil
			}
			a.used += len(a.blocks[a.cur].buf) - a.off // skipped tail counts as used
		}
		a.cur = len(a.blocks)
		if err := a.grow(nb); err != nil {
			return nil, err
		}
		if len(a.blocks[a.cur].buf) < nb { // limit cut the block short
			return nil, fmt.Errorf("arena view of %d bytes exceeds limit %d: %w", nb, a.opts.Limit, common.ErrAlloc)
		}
	}
}

// Bytes is a zeroed view of n bytes.
func (a *Arena) Bytes(n int) ([]byte, error) {
	return a.alloc(n)
}

// Int32s is a zeroed view of n int32s.
func (a *Arena) Int32s(n int) ([]int32, error) {
	return Slice[int32](a, n)
}

// Slice is a zeroed view of n values of T. T must not contain
// pointers. Mapped memory is invisible to the garbage collector.
func Slice[T any](a *Arena, n int) ([]T, error) {
	var zero T
	sz := int(unsafe.Sizeof(zero))
	buf, err := a.alloc(n * sz)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), n), nil
}

// Reset makes all the memory available again. Views handed out
// before are now junk. Nothing is freed.
func (a *Arena) Reset() {
	a.cur, a.off, a.used = 0, 0, 0
}

// Release gives back everything. The arena cannot be used afterwards.
func (a *Arena) Release() error {
	var first error
	for _, b := range a.blocks {
		if b.mm != nil {
			if err := b.mm.Unmap(); err != nil && first == nil {
				first = err
			}
		}
	}
	a.blocks = nil
	a.released = true
	a.cur, a.off, a.used, a.reserved = 0, 0, 0, 0
	return first
}

// Reserved is the number of bytes the arena is holding. It never goes
// down until Release.
func (a *Arena) Reserved() int { return a.reserved }

// HighWater is the most that was ever in use between two Resets.
func (a *Arena) HighWater() int { return a.highWater }

// Used is what has been handed out since the last Reset.
func (a *Arena) Used() int { return a.used }

// Backing says where the blocks come from.
func (a *Arena) Backing() Backing { return a.opts.Backing }
