package message

import (
	"fmt"

	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// Unlimited marks a dimension that can grow without bound.
const Unlimited = binary.Undefined

// maxRank bounds decoded dataspaces; recordings use rank 0, 1 or 2.
const maxRank = 8

// Dataspace describes the current and maximum extent of a dataset or
// attribute. Rank 0 is a scalar.
type Dataspace struct {
	Dims    []uint64
	MaxDims []uint64
}

// Scalar returns a rank-0 dataspace.
func Scalar() *Dataspace {
	return &Dataspace{}
}

// Simple returns a fixed-size dataspace with the given dimensions.
func Simple(dims ...uint64) *Dataspace {
	return &Dataspace{
		Dims:    append([]uint64(nil), dims...),
		MaxDims: append([]uint64(nil), dims...),
	}
}

func (*Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (ds *Dataspace) Rank() int { return len(ds.Dims) }

// NumElements returns the number of elements in the current extent.
func (ds *Dataspace) NumElements() uint64 {
	n := uint64(1)
	for _, d := range ds.Dims {
		n *= d
	}
	return n
}

// Clone returns a deep copy.
func (ds *Dataspace) Clone() *Dataspace {
	return &Dataspace{
		Dims:    append([]uint64(nil), ds.Dims...),
		MaxDims: append([]uint64(nil), ds.MaxDims...),
	}
}

func (ds *Dataspace) Encode(b *binary.Buffer) {
	b.PutUint8(uint8(len(ds.Dims)))
	for _, d := range ds.Dims {
		b.PutUint64(d)
	}
	for i := range ds.Dims {
		m := ds.Dims[i]
		if i < len(ds.MaxDims) {
			m = ds.MaxDims[i]
		}
		b.PutUint64(m)
	}
}

func decodeDataspace(r *binary.Reader) (*Dataspace, error) {
	rank, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if rank > maxRank {
		return nil, fmt.Errorf("rank %d", rank)
	}
	ds := &Dataspace{}
	if rank == 0 {
		return ds, nil
	}
	ds.Dims = make([]uint64, rank)
	ds.MaxDims = make([]uint64, rank)
	for i := range ds.Dims {
		if ds.Dims[i], err = r.ReadUint64(); err != nil {
			return nil, err
		}
	}
	for i := range ds.MaxDims {
		if ds.MaxDims[i], err = r.ReadUint64(); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
