// Package alloc provides append-only space management for recording files.
package alloc

import (
	"fmt"
	"sync"
)

// Alignment of every allocation. Chunk rows of any supported sample width
// stay naturally aligned.
const Alignment = 8

// Allocator hands out file space at the end of the file. Space is never
// reused: relocated headers and chunk indices stay where they were so that
// readers holding an older address still see consistent bytes.
type Allocator struct {
	mu sync.Mutex

	// eofAddr is the next allocation point
	eofAddr uint64

	// baseAddr is the minimum address that can be allocated
	// (right after the superblock)
	baseAddr uint64

	// allocations made through this allocator, for validation
	allocations []Allocation

	stats Stats
}

// Allocation represents a single allocation made.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64
	TotalBytesAlloc  uint64
	LargestAlloc     uint64
}

// Mark captures allocator state so a failed multi-step operation can give
// its space back with Rollback.
type Mark struct {
	eofAddr uint64
	n       int
	stats   Stats
}

// New creates an allocator for a new file, starting at baseAddr.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  align(baseAddr),
		baseAddr: baseAddr,
	}
}

// Resume creates an allocator for an existing file whose allocated space
// ends at eof.
func Resume(baseAddr, eof uint64) *Allocator {
	a := New(baseAddr)
	if eof > a.eofAddr {
		a.eofAddr = align(eof)
	}
	return a
}

// AllocTagged allocates a block and records a tag for diagnostics.
func (a *Allocator) AllocTagged(size uint64, tag string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if size == 0 {
		return a.eofAddr
	}

	addr := a.eofAddr
	a.eofAddr = align(addr + size)

	a.allocations = append(a.allocations, Allocation{
		Addr: addr,
		Size: size,
		Tag:  tag,
	})

	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}

	return addr
}

// Mark returns the current state for a later Rollback.
func (a *Allocator) Mark() Mark {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Mark{eofAddr: a.eofAddr, n: len(a.allocations), stats: a.stats}
}

// Rollback forgets every allocation made since m.
func (a *Allocator) Rollback(m Mark) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m.n > len(a.allocations) || m.eofAddr > a.eofAddr {
		return
	}
	a.eofAddr = m.eofAddr
	a.allocations = a.allocations[:m.n]
	a.stats = m.stats
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eofAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Validate checks that allocations don't overlap and are within bounds.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, alloc := range a.allocations {
		if alloc.Addr < a.baseAddr {
			return fmt.Errorf("allocation at 0x%x is before base address 0x%x", alloc.Addr, a.baseAddr)
		}
		if alloc.Addr+alloc.Size > a.eofAddr {
			return fmt.Errorf("allocation at 0x%x size %d extends past EOF 0x%x", alloc.Addr, alloc.Size, a.eofAddr)
		}
	}

	// Allocations are handed out in increasing address order, so neighbours
	// are enough to detect overlap.
	for i := 1; i < len(a.allocations); i++ {
		prev, cur := a.allocations[i-1], a.allocations[i]
		if prev.Addr+prev.Size > cur.Addr {
			return fmt.Errorf("overlapping allocations: [0x%x, size %d] and [0x%x, size %d]",
				prev.Addr, prev.Size, cur.Addr, cur.Size)
		}
	}

	return nil
}

func align(addr uint64) uint64 {
	if r := addr % Alignment; r != 0 {
		return addr + Alignment - r
	}
	return addr
}
