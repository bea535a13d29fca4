package layout

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// ReadContiguous reads the stored bytes of a contiguous dataset.
func ReadContiguous(r io.ReaderAt, l *message.Layout) ([]byte, error) {
	if l.Class != message.LayoutContiguous {
		return nil, fmt.Errorf("%w: not a contiguous layout", ErrInvalidIndex)
	}
	if l.Size == 0 {
		return nil, nil
	}
	data, err := binary.NewReader(r).At(int64(l.Address)).ReadBytes(int(l.Size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data at 0x%x: %w", l.Address, err)
	}
	return data, nil
}

// WriteContiguous allocates space for data, writes it, and returns the
// layout message that locates it.
func WriteContiguous(w io.WriterAt, a Allocator, data []byte, tag string) (*message.Layout, error) {
	l := &message.Layout{Class: message.LayoutContiguous, Size: uint64(len(data))}
	l.Address = a.AllocTagged(l.Size, tag)
	if err := binary.NewWriter(w).At(int64(l.Address)).WriteBytes(data); err != nil {
		return nil, fmt.Errorf("writing contiguous data: %w", err)
	}
	return l, nil
}
