package layout

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/robert-malhotra/go-mearec/internal/binary"
)

// IndexSignature marks the start of a chunk index block.
var IndexSignature = []byte{'M', 'C', 'K', 'I'}

const (
	indexVersion    = 1
	indexHeaderSize = 20
	slotSize        = 8

	// MinIndexCapacity is the smallest number of slots allocated.
	MinIndexCapacity = 8
)

// Errors
var (
	ErrInvalidIndex = errors.New("invalid chunk index")
	ErrWindow       = errors.New("window outside chunked extent")
)

// IndexSize returns the on-disk size of an index with the given capacity.
func IndexSize(capacity uint64) uint64 {
	return indexHeaderSize + slotSize*capacity
}

func encodeIndexHeader(capacity uint64) []byte {
	b := binary.NewBuffer(indexHeaderSize)
	b.PutBytes(IndexSignature)
	b.PutUint8(indexVersion)
	b.Pad(3)
	b.PutUint64(capacity)
	b.PutUint32(binary.Checksum(b.Bytes()))
	return b.Bytes()
}

// ReadIndex reads the first n chunk addresses of the index at addr.
func ReadIndex(r io.ReaderAt, addr, capacity, n uint64) ([]uint64, error) {
	if n > capacity {
		return nil, fmt.Errorf("%w: %d chunks exceed capacity %d", ErrInvalidIndex, n, capacity)
	}
	br := binary.NewReader(r).At(int64(addr))
	hdr, err := br.ReadBytes(indexHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("reading chunk index at 0x%x: %w", addr, err)
	}
	if !bytes.Equal(hdr[:4], IndexSignature) || hdr[4] != indexVersion {
		return nil, fmt.Errorf("%w: bad signature at 0x%x", ErrInvalidIndex, addr)
	}
	if !binary.VerifyChecksum(hdr[:16], binary.Uint32(hdr[16:])) {
		return nil, fmt.Errorf("%w: checksum mismatch at 0x%x", ErrInvalidIndex, addr)
	}
	if got := binary.Uint64(hdr[8:16]); got != capacity {
		return nil, fmt.Errorf("%w: capacity %d, layout says %d", ErrInvalidIndex, got, capacity)
	}

	slots, err := br.ReadBytes(int(n * slotSize))
	if err != nil {
		return nil, fmt.Errorf("reading chunk index slots: %w", err)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.Uint64(slots[i*slotSize:])
		if out[i] == binary.Undefined {
			return nil, fmt.Errorf("%w: slot %d is unset", ErrInvalidIndex, i)
		}
	}
	return out, nil
}

// writeIndex writes a complete index block: header, entries, and unset
// slots for the remaining capacity.
func writeIndex(w *binary.Writer, addr, capacity uint64, entries []uint64) error {
	b := binary.NewBuffer(int(IndexSize(capacity)))
	b.PutBytes(encodeIndexHeader(capacity))
	for _, e := range entries {
		b.PutUint64(e)
	}
	for i := uint64(len(entries)); i < capacity; i++ {
		b.PutUint64(binary.Undefined)
	}
	return w.At(int64(addr)).WriteBytes(b.Bytes())
}

// writeSlots writes entries into slots [from, from+len(entries)).
func writeSlots(w *binary.Writer, addr, from uint64, entries []uint64) error {
	if len(entries) == 0 {
		return nil
	}
	b := binary.NewBuffer(len(entries) * slotSize)
	for _, e := range entries {
		b.PutUint64(e)
	}
	return w.At(int64(addr + indexHeaderSize + from*slotSize)).WriteBytes(b.Bytes())
}
