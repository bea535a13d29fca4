package message

import (
	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// Filter identifiers
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
)

// FilterInfo describes a single filter of a pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	ClientData []uint32
}

// FilterPipeline lists the filters applied, in order, to stored bytes.
type FilterPipeline struct {
	Filters []FilterInfo
}

func (*FilterPipeline) Type() Type { return TypeFilterPipeline }

func (fp *FilterPipeline) Encode(b *binary.Buffer) {
	b.PutUint8(uint8(len(fp.Filters)))
	for _, f := range fp.Filters {
		b.PutUint16(f.ID)
		b.PutUint16(f.Flags)
		b.PutUint16(uint16(len(f.ClientData)))
		for _, v := range f.ClientData {
			b.PutUint32(v)
		}
	}
}

func decodeFilterPipeline(r *binary.Reader) (*FilterPipeline, error) {
	n, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	fp := &FilterPipeline{Filters: make([]FilterInfo, n)}
	for i := range fp.Filters {
		f := &fp.Filters[i]
		if f.ID, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		if f.Flags, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		nvals, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if nvals > 0 {
			f.ClientData = make([]uint32, nvals)
		}
		for j := range f.ClientData {
			if f.ClientData[j], err = r.ReadUint32(); err != nil {
				return nil, err
			}
		}
	}
	return fp, nil
}
