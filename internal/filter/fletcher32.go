package filter

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-mearec/internal/binary"
	"github.com/robert-malhotra/go-mearec/internal/message"
)

// Fletcher32Filter appends and verifies a Fletcher-32 checksum.
type Fletcher32Filter struct{}

// NewFletcher32 creates a new Fletcher-32 filter.
func NewFletcher32([]uint32) *Fletcher32Filter {
	return &Fletcher32Filter{}
}

func (f *Fletcher32Filter) ID() uint16 {
	return message.FilterFletcher32
}

func (f *Fletcher32Filter) ClientData() []uint32 {
	return nil
}

// Encode returns data followed by its little-endian checksum.
func (f *Fletcher32Filter) Encode(input []byte) ([]byte, error) {
	out := make([]byte, len(input)+4)
	copy(out, input)
	binpkg.PutUint32(out[len(input):], binpkg.Fletcher32(input))
	return out, nil
}

// Decode verifies the trailing checksum and returns the data without it.
func (f *Fletcher32Filter) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("fletcher32: input too short for checksum")
	}
	data := input[:len(input)-4]
	stored := binpkg.Uint32(input[len(input)-4:])
	if computed := binpkg.Fletcher32(data); stored != computed {
		return nil, fmt.Errorf("%w: stored=0x%08x, computed=0x%08x", ErrChecksum, stored, computed)
	}
	return data, nil
}
