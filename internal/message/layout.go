package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// LayoutClass selects the storage layout of a dataset.
type LayoutClass uint8

// Layout classes
const (
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
)

// Layout describes where and how dataset elements are stored.
//
// Contiguous datasets use Address and Size (stored bytes, after filters).
// Chunked datasets use ChunkDims, ElementSize and the chunk index fields;
// NumChunks is the number of committed chunks, which is what a reader may
// look up in the index.
type Layout struct {
	Class LayoutClass

	Address uint64
	Size    uint64

	ChunkDims     []uint32
	ElementSize   uint32
	IndexAddress  uint64
	IndexCapacity uint64
	NumChunks     uint64
}

func (*Layout) Type() Type { return TypeDataLayout }

// ChunkBytes returns the byte size of one chunk.
func (l *Layout) ChunkBytes() uint64 {
	n := uint64(l.ElementSize)
	for _, d := range l.ChunkDims {
		n *= uint64(d)
	}
	return n
}

// Clone returns a deep copy.
func (l *Layout) Clone() *Layout {
	c := *l
	c.ChunkDims = append([]uint32(nil), l.ChunkDims...)
	return &c
}

func (l *Layout) Encode(b *binary.Buffer) {
	b.PutUint8(uint8(l.Class))
	switch l.Class {
	case LayoutContiguous:
		b.PutOffset(l.Address)
		b.PutUint64(l.Size)
	case LayoutChunked:
		b.PutUint8(uint8(len(l.ChunkDims)))
		for _, d := range l.ChunkDims {
			b.PutUint32(d)
		}
		b.PutUint32(l.ElementSize)
		b.PutOffset(l.IndexAddress)
		b.PutUint64(l.IndexCapacity)
		b.PutUint64(l.NumChunks)
	}
}

func decodeLayout(r *binary.Reader) (*Layout, error) {
	class, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	l := &Layout{Class: LayoutClass(class)}
	switch l.Class {
	case LayoutContiguous:
		if l.Address, err = r.ReadOffset(); err != nil {
			return nil, err
		}
		if l.Size, err = r.ReadUint64(); err != nil {
			return nil, err
		}
	case LayoutChunked:
		rank, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		if rank == 0 || rank > maxRank {
			return nil, fmt.Errorf("chunk rank %d", rank)
		}
		l.ChunkDims = make([]uint32, rank)
		for i := range l.ChunkDims {
			if l.ChunkDims[i], err = r.ReadUint32(); err != nil {
				return nil, err
			}
		}
		if l.ElementSize, err = r.ReadUint32(); err != nil {
			return nil, err
		}
		if l.IndexAddress, err = r.ReadOffset(); err != nil {
			return nil, err
		}
		if l.IndexCapacity, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		if l.NumChunks, err = r.ReadUint64(); err != nil {
			return nil, err
		}
		if l.NumChunks > l.IndexCapacity {
			return nil, fmt.Errorf("%d chunks exceed index capacity %d", l.NumChunks, l.IndexCapacity)
		}
	default:
		return nil, fmt.Errorf("layout class %d", class)
	}
	return l, nil
}
