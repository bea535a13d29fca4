package layout

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// Storage is the file surface needed to grow a chunked dataset.
type Storage interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
}

// Allocator hands out file space.
type Allocator interface {
	AllocTagged(size uint64, tag string) uint64
	EOFAddr() uint64
}

// Chunked is a two-dimensional (channel x sample) dataset stored in chunks
// of (Channels x BlockSize) elements.
type Chunked struct {
	Channels    uint64
	BlockSize   uint64
	ElementSize uint64

	IndexAddress  uint64
	IndexCapacity uint64

	// Chunks holds the committed chunk addresses in sample order.
	Chunks []uint64
}

// Create allocates a chunk index and n zero-filled chunks.
func Create(s Storage, a Allocator, channels, blockSize, elemSize uint64, n int) (*Chunked, error) {
	if channels == 0 || blockSize == 0 || elemSize == 0 {
		return nil, fmt.Errorf("invalid chunk shape %dx%d of %d-byte elements", channels, blockSize, elemSize)
	}
	capacity := uint64(MinIndexCapacity)
	for capacity < uint64(n) {
		capacity *= 2
	}
	c := &Chunked{
		Channels:      channels,
		BlockSize:     blockSize,
		ElementSize:   elemSize,
		IndexCapacity: capacity,
	}
	c.IndexAddress = a.AllocTagged(IndexSize(capacity), "chunk-index")
	for i := 0; i < n; i++ {
		c.Chunks = append(c.Chunks, a.AllocTagged(c.ChunkBytes(), "chunk"))
	}
	if err := s.Truncate(int64(a.EOFAddr())); err != nil {
		return nil, fmt.Errorf("zero-filling chunks: %w", err)
	}
	if err := writeIndex(binary.NewWriter(s), c.IndexAddress, capacity, c.Chunks); err != nil {
		return nil, fmt.Errorf("writing chunk index: %w", err)
	}
	return c, nil
}

// Open loads a chunked dataset from its layout message.
func Open(r io.ReaderAt, l *message.Layout) (*Chunked, error) {
	if l.Class != message.LayoutChunked || len(l.ChunkDims) != 2 {
		return nil, fmt.Errorf("%w: not a two-dimensional chunked layout", ErrInvalidIndex)
	}
	chunks, err := ReadIndex(r, l.IndexAddress, l.IndexCapacity, l.NumChunks)
	if err != nil {
		return nil, err
	}
	return &Chunked{
		Channels:      uint64(l.ChunkDims[0]),
		BlockSize:     uint64(l.ChunkDims[1]),
		ElementSize:   uint64(l.ElementSize),
		IndexAddress:  l.IndexAddress,
		IndexCapacity: l.IndexCapacity,
		Chunks:        chunks,
	}, nil
}

// Layout returns the layout message describing c.
func (c *Chunked) Layout() *message.Layout {
	return &message.Layout{
		Class:         message.LayoutChunked,
		ChunkDims:     []uint32{uint32(c.Channels), uint32(c.BlockSize)},
		ElementSize:   uint32(c.ElementSize),
		IndexAddress:  c.IndexAddress,
		IndexCapacity: c.IndexCapacity,
		NumChunks:     uint64(len(c.Chunks)),
	}
}

// ChunkBytes returns the size of one chunk in bytes.
func (c *Chunked) ChunkBytes() uint64 {
	return c.Channels * c.BlockSize * c.ElementSize
}

// Samples returns the allocated extent along the sample axis.
func (c *Chunked) Samples() uint64 {
	return uint64(len(c.Chunks)) * c.BlockSize
}

// ChunksFor returns the number of chunks needed to hold n samples.
func (c *Chunked) ChunksFor(n uint64) int {
	return int((n + c.BlockSize - 1) / c.BlockSize)
}

// Grow returns a copy of c extended by n zero-filled chunks. The chunks are
// allocated, zero-filled and recorded in the index; c itself is unchanged.
// When the index is full it is copied to a new block of doubled capacity.
func (c *Chunked) Grow(s Storage, a Allocator, n int) (*Chunked, error) {
	g := *c
	g.Chunks = append(make([]uint64, 0, len(c.Chunks)+n), c.Chunks...)
	if n <= 0 {
		return &g, nil
	}

	var fresh []uint64
	for i := 0; i < n; i++ {
		fresh = append(fresh, a.AllocTagged(c.ChunkBytes(), "chunk"))
	}
	g.Chunks = append(g.Chunks, fresh...)

	relocate := uint64(len(g.Chunks)) > c.IndexCapacity
	if relocate {
		for g.IndexCapacity < uint64(len(g.Chunks)) {
			g.IndexCapacity *= 2
		}
		g.IndexAddress = a.AllocTagged(IndexSize(g.IndexCapacity), "chunk-index")
	}

	if err := s.Truncate(int64(a.EOFAddr())); err != nil {
		return nil, fmt.Errorf("zero-filling chunks: %w", err)
	}

	w := binary.NewWriter(s)
	if relocate {
		if err := writeIndex(w, g.IndexAddress, g.IndexCapacity, g.Chunks); err != nil {
			return nil, fmt.Errorf("relocating chunk index: %w", err)
		}
		return &g, nil
	}
	if err := writeSlots(w, g.IndexAddress, uint64(len(c.Chunks)), fresh); err != nil {
		return nil, fmt.Errorf("writing chunk index slots: %w", err)
	}
	return &g, nil
}

// ReadWindow reads channels [ch0, ch1) over samples [s0, s1) into dst,
// channel-major: the element for channel c, sample s lands at
// (c-ch0)*(s1-s0) + (s-s0). Each chunk is read with one ReadAt.
func (c *Chunked) ReadWindow(r io.ReaderAt, ch0, ch1, s0, s1 uint64, dst []byte) error {
	if err := c.checkWindow(ch0, ch1, s0, s1, len(dst)); err != nil {
		return err
	}
	e := c.ElementSize
	bs := c.BlockSize
	width := s1 - s0

	var span []byte
	for k := s0 / bs; k*bs < s1; k++ {
		base := k * bs
		lo := max(s0, base) - base
		hi := min(s1, base+bs) - base
		rowBytes := (hi - lo) * e

		start := (ch0*bs + lo) * e
		end := ((ch1-1)*bs + hi) * e
		if uint64(cap(span)) < end-start {
			span = make([]byte, end-start)
		}
		span = span[:end-start]
		if _, err := r.ReadAt(span, int64(c.Chunks[k]+start)); err != nil {
			return fmt.Errorf("reading chunk %d: %w", k, err)
		}

		for ch := ch0; ch < ch1; ch++ {
			src := (ch - ch0) * bs * e
			at := ((ch-ch0)*width + base + lo - s0) * e
			copy(dst[at:at+rowBytes], span[src:src+rowBytes])
		}
	}
	return nil
}

// WriteWindow writes all channels over samples [s0, s1) from src, laid out
// channel-major like ReadWindow. Fully covered chunks are written with a
// single WriteAt; partial chunks are written one channel row at a time.
func (c *Chunked) WriteWindow(w io.WriterAt, s0, s1 uint64, src []byte) error {
	if err := c.checkWindow(0, c.Channels, s0, s1, len(src)); err != nil {
		return err
	}
	e := c.ElementSize
	bs := c.BlockSize
	width := s1 - s0
	bw := binary.NewWriter(w)

	var whole []byte
	for k := s0 / bs; k*bs < s1; k++ {
		base := k * bs
		lo := max(s0, base) - base
		hi := min(s1, base+bs) - base
		rowBytes := (hi - lo) * e

		if lo == 0 && hi == bs {
			if whole == nil {
				whole = make([]byte, c.ChunkBytes())
			}
			for ch := uint64(0); ch < c.Channels; ch++ {
				from := (ch*width + base - s0) * e
				copy(whole[ch*bs*e:], src[from:from+rowBytes])
			}
			if err := bw.At(int64(c.Chunks[k])).WriteBytes(whole); err != nil {
				return fmt.Errorf("writing chunk %d: %w", k, err)
			}
			continue
		}

		for ch := uint64(0); ch < c.Channels; ch++ {
			from := (ch*width + base + lo - s0) * e
			at := c.Chunks[k] + (ch*bs+lo)*e
			if err := bw.At(int64(at)).WriteBytes(src[from : from+rowBytes]); err != nil {
				return fmt.Errorf("writing chunk %d channel %d: %w", k, ch, err)
			}
		}
	}
	return nil
}

func (c *Chunked) checkWindow(ch0, ch1, s0, s1 uint64, n int) error {
	if ch0 >= ch1 || ch1 > c.Channels || s0 >= s1 || s1 > c.Samples() {
		return fmt.Errorf("%w: channels [%d,%d) samples [%d,%d) of %dx%d",
			ErrWindow, ch0, ch1, s0, s1, c.Channels, c.Samples())
	}
	if want := (ch1 - ch0) * (s1 - s0) * c.ElementSize; uint64(n) != want {
		return fmt.Errorf("%w: buffer of %d bytes, want %d", ErrWindow, n, want)
	}
	return nil
}
